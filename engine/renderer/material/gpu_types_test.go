package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGPUMaterialSize(t *testing.T) {
	var m GPUMaterial
	assert.Equal(t, 64, m.Size())
	assert.Contains(t, GPUMaterialSource, "struct Material")
}

func TestPackAll(t *testing.T) {
	mats := []geometry.Material{
		{Diffuse: [3]float32{1, 0, 0}, Illum: 2},
		{Emission: [3]float32{4, 4, 4}, Illum: 3},
	}
	packed := PackAll(mats, func(m *geometry.Material) uint32 { return uint32(m.Illum) * 10 })
	require.Len(t, packed, 2)
	assert.Equal(t, [3]float32{1, 0, 0}, packed[0].Diffuse)
	assert.Equal(t, uint32(20), packed[0].HitGroup)
	assert.Equal(t, [3]float32{4, 4, 4}, packed[1].Emission)
	assert.Equal(t, int32(3), packed[1].Illum)

	plain := PackAll(mats, nil)
	assert.Zero(t, plain[1].HitGroup)
}

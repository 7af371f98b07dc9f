package scene

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleOBJ = `
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func TestBuildDefaultScene(t *testing.T) {
	asm, err := Build(context.Background(), config.Default().Scene)
	require.NoError(t, err)

	assert.Equal(t, 3, asm.Store.Len())
	assert.Equal(t, 8, asm.Table.Len())
	assert.Len(t, asm.Placements, 8)
	assert.Len(t, asm.Animated(), 6)
	assert.Equal(t, uint64(8), asm.Table.Generation())

	// the center subject instance stays put
	var center *Placement
	for i := range asm.Placements {
		if asm.Placements[i].Source == 1 && asm.Placements[i].Index == -1 {
			center = &asm.Placements[i]
		}
	}
	require.NotNil(t, center)
	assert.False(t, center.Animated)
	assert.Equal(t, mgl32.Ident4(), center.World)
}

func TestBuildLoadsRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.obj"), []byte(triangleOBJ), 0o644))

	cfg := config.Scene{Meshes: []config.Mesh{
		{Name: "tri", Path: "tri.obj", Scale: [3]float32{1, 1, 1}, Instances: 2, Distribution: config.Distribution{Kind: config.DistributionGrid}},
		{Name: "box", Primitive: "cube", Scale: [3]float32{1, 1, 1}, Instances: 1, Distribution: config.Distribution{Kind: config.DistributionSingle}},
	}}
	asm, err := Build(context.Background(), cfg, WithBaseDir(dir), WithLoadWorkers(1))
	require.NoError(t, err)
	require.Len(t, asm.Meshes, 2)

	tri, ok := asm.Store.Get(asm.Meshes[0])
	require.True(t, ok)
	assert.Equal(t, 1, tri.TriangleCount())
	assert.Equal(t, 3, asm.Table.Len())
}

func TestBuildMissingMesh(t *testing.T) {
	cfg := config.Scene{Meshes: []config.Mesh{{Name: "gone", Path: "does/not/exist.obj", Scale: [3]float32{1, 1, 1}, Instances: 1}}}
	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene.meshes[0] (gone)")
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := config.Scene{Meshes: []config.Mesh{{Name: "x", Path: "x.obj", Scale: [3]float32{1, 1, 1}, Instances: 1}}}
	_, err := Build(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildEmptyScene(t *testing.T) {
	asm, err := Build(context.Background(), config.Scene{})
	require.NoError(t, err)
	assert.Zero(t, asm.Table.Len())
	assert.Zero(t, asm.Store.Len())
}

func TestDistribute(t *testing.T) {
	t.Run("grid", func(t *testing.T) {
		w := Distribute(config.Distribution{Kind: config.DistributionGrid, Spacing: 2}, 4)
		require.Len(t, w, 4)
		assert.Equal(t, mgl32.Vec3{-1, 0, -1}, w[0].Col(3).Vec3())
		assert.Equal(t, mgl32.Vec3{1, 0, 1}, w[3].Col(3).Vec3())
	})
	t.Run("ring", func(t *testing.T) {
		w := Distribute(config.Distribution{Kind: config.DistributionRing, Radius: 3, Center: true}, 5)
		require.Len(t, w, 6)
		assert.Equal(t, mgl32.Ident4(), w[0])
		for _, m := range w[1:] {
			assert.InDelta(t, 3, m.Col(3).Vec3().Len(), 1e-5)
		}
	})
	t.Run("seeded", func(t *testing.T) {
		d := config.Distribution{Kind: config.DistributionRandom, Seed: 42, RandomRotation: true, ScaleRange: [2]float32{0.5, 1}}
		assert.Equal(t, Distribute(d, 10), Distribute(d, 10))
		d.Seed = 43
		other := Distribute(d, 10)
		d.Seed = 42
		assert.NotEqual(t, Distribute(d, 10), other)
	})
	t.Run("normal", func(t *testing.T) {
		w := Distribute(config.Distribution{Kind: config.DistributionNormal, Sigma: 0.5, Seed: 1}, 50)
		assert.Len(t, w, 50)
	})
}

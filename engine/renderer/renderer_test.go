package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify("x", nil))
	assert.ErrorIs(t, Classify("submit", errors.New("Device Lost: hang")), rterr.ErrDeviceLost)
	assert.ErrorIs(t, Classify("buffer", errors.New("Out of memory")), rterr.ErrResourceExhausted)

	raw := errors.New("validation failed")
	err := Classify("pipeline", raw)
	assert.ErrorIs(t, err, raw)
	assert.NotErrorIs(t, err, rterr.ErrDeviceLost)
	assert.Contains(t, err.Error(), "pipeline")
}

func TestImage(t *testing.T) {
	im := NewImage(3, 2)
	im.Fill(common.RGBA{0.5, 0, 1, 1})
	im.Set(2, 1, common.RGBA{2, -1, 0.25, 1})
	assert.Equal(t, common.RGBA{0.5, 0, 1, 1}, im.At(0, 0))

	n := im.ToNRGBA()
	require.Equal(t, 3, n.Bounds().Dx())
	c := n.NRGBAAt(2, 1)
	assert.Equal(t, uint8(255), c.R)
	assert.Equal(t, uint8(0), c.G)
	assert.Equal(t, uint8(64), c.B)

	assert.False(t, im.Resize(3, 2))
	assert.True(t, im.Resize(4, 4))
	assert.Len(t, im.Pix, 64)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("software")
	require.NoError(t, err)
	assert.Equal(t, BackendSoftware, b)
	_, err = ParseBackend("vulkan")
	assert.Error(t, err)
}

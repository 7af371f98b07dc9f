package composite

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rasterImage(w, h int) *renderer.Image {
	img := renderer.NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = float32(i%7) / 7
	}
	return img
}

func TestRasterPassThrough(t *testing.T) {
	src := rasterImage(8, 4)
	dst := renderer.NewImage(0, 0)
	require.NoError(t, NewCompositor().Resolve(Source{Mode: params.ModeRaster, Raster: src}, nil, dst))
	assert.Equal(t, src.Pix, dst.Pix)
}

func TestZeroAlphaOverlayIsBitIdentical(t *testing.T) {
	src := rasterImage(10, 10)
	plain := renderer.NewImage(0, 0)
	withOverlay := renderer.NewImage(0, 0)
	c := NewCompositor()
	require.NoError(t, c.Resolve(Source{Mode: params.ModeRaster, Raster: src}, nil, plain))

	bar := ProgressBar{Width: 10, Height: 10, Fraction: 0.5, Thickness: 2, Color: common.RGBA{1, 0, 0, 0.5}}
	require.NoError(t, c.Resolve(Source{Mode: params.ModeRaster, Raster: src}, bar, withOverlay))

	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if bar.At(x, y)[3] == 0 {
				require.Equal(t, plain.At(x, y), withOverlay.At(x, y), "pixel %d,%d", x, y)
			}
		}
	}
	s := plain.At(0, 9)
	assert.Equal(t, common.RGBA{0.5 + 0.5*s[0], 0.5 * s[1], 0.5 * s[2], 0.5 + 0.5*s[3]}, withOverlay.At(0, 9))
}

func TestRayTraceToneMap(t *testing.T) {
	acc, err := accumulator.New(2, 1)
	require.NoError(t, err)
	require.NoError(t, acc.Accumulate([]float32{1, 1, 1, 1, 0, 0, 0, 0.5}))
	require.NoError(t, acc.Accumulate([]float32{1, 1, 1, 1, 0, 0, 0, 0.5}))

	dst := renderer.NewImage(0, 0)
	c := NewCompositor()
	require.NoError(t, c.Resolve(Source{Mode: params.ModeRayTrace, Accum: acc}, nil, dst))
	want := math32.Pow(0.5, 1/DefaultGamma)
	assert.InDelta(t, want, dst.At(0, 0)[0], 1e-6)
	assert.Equal(t, float32(1), dst.At(0, 0)[3])
	assert.Equal(t, common.RGBA{0, 0, 0, 0.5}, dst.At(1, 0))

	c.SetExposure(3)
	require.NoError(t, c.Resolve(Source{Mode: params.ModeRayTrace, Accum: acc}, nil, dst))
	assert.InDelta(t, math32.Pow(0.75, 1/DefaultGamma), dst.At(0, 0)[0], 1e-6)
}

func TestRayTraceWithoutSamplesIsBackground(t *testing.T) {
	acc, err := accumulator.New(3, 2)
	require.NoError(t, err)
	bg := common.RGBA{0.2, 0.3, 0.4, 1}

	raster := renderer.NewImage(3, 2)
	raster.Fill(bg)
	rasterOut := renderer.NewImage(0, 0)
	traceOut := renderer.NewImage(0, 0)
	c := NewCompositor()
	require.NoError(t, c.Resolve(Source{Mode: params.ModeRaster, Raster: raster}, nil, rasterOut))
	require.NoError(t, c.Resolve(Source{Mode: params.ModeRayTrace, Accum: acc, Background: bg}, nil, traceOut))

	assert.Equal(t, rasterOut.Pix, traceOut.Pix)
	assert.Equal(t, bg, traceOut.At(2, 1))
}

func TestProgressBarDraws(t *testing.T) {
	bar := NewProgressBar(8, 8, 1)
	drawn := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if bar.At(x, y)[3] > 0 {
				drawn++
			}
		}
	}
	assert.Equal(t, 8*DefaultProgressThickness, drawn)

	half := NewProgressBar(8, 8, 0.5)
	assert.Equal(t, common.RGBA{1, 1, 1, 1}, half.At(3, 7))
	assert.Zero(t, half.At(4, 7)[3])
	assert.Zero(t, half.At(0, 0)[3])

	src := rasterImage(8, 8)
	dst := renderer.NewImage(0, 0)
	require.NoError(t, NewCompositor().Resolve(Source{Mode: params.ModeRaster, Raster: src}, half, dst))
	assert.Equal(t, common.RGBA{1, 1, 1, 1}, dst.At(0, 7))
	assert.Equal(t, src.At(7, 7), dst.At(7, 7))
}

func TestResolveMissingSource(t *testing.T) {
	c := NewCompositor()
	dst := renderer.NewImage(0, 0)
	assert.Error(t, c.Resolve(Source{Mode: params.ModeRayTrace}, nil, dst))
	assert.Error(t, c.Resolve(Source{Mode: params.ModeRaster}, nil, dst))
}

func TestOverlayClippedToDestination(t *testing.T) {
	src := rasterImage(4, 4)
	big := renderer.NewImage(16, 16)
	big.Fill(common.RGBA{0, 0, 0, 1})
	dst := renderer.NewImage(0, 0)
	require.NoError(t, NewCompositor().Resolve(Source{Mode: params.ModeRaster, Raster: src}, ImageOverlay{Image: big}, dst))
	assert.Equal(t, 4, dst.Width)
	assert.Equal(t, common.RGBA{0, 0, 0, 1}, dst.At(3, 3))
}

func TestResolveShaderMatchesHostLayout(t *testing.T) {
	_, err := shader.Prepare(compositeWGSL, shader.Expect[gpuResolve]("Resolve"))
	assert.NoError(t, err)
}

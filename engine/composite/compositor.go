// Package composite turns the active path's output into display-ready pixels and draws
// an optional overlay on top.
package composite

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/chewxy/math32"
)

var logger = log.New("composite")

const (
	// DefaultExposure scales radiance before tone mapping.
	DefaultExposure float32 = 1
	// DefaultGamma is the display gamma applied after tone mapping.
	DefaultGamma float32 = 2.2
)

// Source is the output of one render path.
type Source struct {
	Mode params.RenderMode
	// Raster is the raster color target, used in ModeRaster.
	Raster *renderer.Image
	// Accum is the running average, used in ModeRayTrace.
	Accum *accumulator.Accumulator
	// Background fills a ray-traced frame that holds no samples yet. It passes through
	// untouched, like the raster clear.
	Background common.RGBA
}

// Compositor resolves a source into a display image.
type Compositor struct {
	mu       sync.Mutex
	exposure float32
	gamma    float32
	average  []float32
}

// NewCompositor creates a compositor.
//
// Parameters:
//   - options: functional options (exposure, gamma)
//
// Returns:
//   - *Compositor: the compositor
func NewCompositor(options ...CompositorBuilderOption) *Compositor {
	c := &Compositor{exposure: DefaultExposure, gamma: DefaultGamma}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// SetExposure changes the exposure of later resolves. Non-positive values are ignored.
func (c *Compositor) SetExposure(exposure float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if exposure > 0 {
		c.exposure = exposure
	}
}

// Exposure returns the current exposure.
func (c *Compositor) Exposure() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exposure
}

// Gamma returns the display gamma.
func (c *Compositor) Gamma() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gamma
}

// Resolve writes the display image into dst, resizing it to the source size.
// Ray-traced sources are averaged, exposed, Reinhard tone mapped and gamma encoded;
// raster sources pass through, and so does the background of a ray-traced source without samples. The overlay, when non-nil, is composited "over" the result
// and leaves pixels with zero overlay alpha untouched.
//
// Parameters:
//   - src: the active path's output
//   - overlay: optional premultiplied overlay
//   - dst: destination image
//
// Returns:
//   - error: when the source for the mode is missing
func (c *Compositor) Resolve(src Source, overlay Overlay, dst *renderer.Image) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch src.Mode {
	case params.ModeRayTrace:
		if src.Accum == nil {
			return fmt.Errorf("resolve: ray-trace source has no accumulator")
		}
		w, h := src.Accum.Size()
		dst.Resize(w, h)
		if src.Accum.SampleCount() == 0 {
			dst.Fill(src.Background)
			break
		}
		if cap(c.average) < len(dst.Pix) {
			c.average = make([]float32, len(dst.Pix))
		}
		c.average = c.average[:len(dst.Pix)]
		if err := src.Accum.Average(c.average); err != nil {
			return fmt.Errorf("resolve: %w", err)
		}
		for i := 0; i < len(c.average); i += 4 {
			dst.Pix[i] = c.tonemap(c.average[i])
			dst.Pix[i+1] = c.tonemap(c.average[i+1])
			dst.Pix[i+2] = c.tonemap(c.average[i+2])
			dst.Pix[i+3] = common.Clamp(c.average[i+3], 0, 1)
		}
	default:
		if src.Raster == nil {
			return fmt.Errorf("resolve: raster source has no image")
		}
		dst.Resize(src.Raster.Width, src.Raster.Height)
		copy(dst.Pix, src.Raster.Pix)
	}

	if overlay != nil {
		over(dst, overlay)
	}
	return nil
}

func (c *Compositor) tonemap(v float32) float32 {
	v = max(v, 0) * c.exposure
	v = v / (1 + v)
	return math32.Pow(v, 1/c.gamma)
}

// over composites premultiplied overlay pixels onto dst.
func over(dst *renderer.Image, overlay Overlay) {
	ow, oh := overlay.Bounds()
	w, h := min(ow, dst.Width), min(oh, dst.Height)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := overlay.At(x, y)
			if o[3] == 0 {
				continue
			}
			s := dst.At(x, y)
			k := 1 - o[3]
			dst.Set(x, y, common.RGBA{o[0] + k*s[0], o[1] + k*s[1], o[2] + k*s[2], o[3] + k*s[3]})
		}
	}
}

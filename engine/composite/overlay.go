package composite

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

// Overlay supplies premultiplied RGBA pixels drawn over the resolved scene.
// Pixels outside Bounds are transparent.
type Overlay interface {
	Bounds() (width, height int)
	At(x, y int) common.RGBA
}

// ImageOverlay overlays a premultiplied image anchored at the top-left corner.
type ImageOverlay struct {
	Image *renderer.Image
}

func (o ImageOverlay) Bounds() (int, int) {
	if o.Image == nil {
		return 0, 0
	}
	return o.Image.Width, o.Image.Height
}

func (o ImageOverlay) At(x, y int) common.RGBA {
	return o.Image.At(x, y)
}

// ProgressBar draws a bar along the bottom edge whose length is Fraction of the width.
// The viewer uses it to show accumulation progress towards the sample cap.
type ProgressBar struct {
	Width    int
	Height   int
	Fraction float32
	// Thickness in pixels.
	Thickness int
	// Color is straight (not premultiplied) RGBA.
	Color common.RGBA
}

const (
	DefaultProgressThickness = 4
)

// NewProgressBar returns an opaque white bar of the default thickness for a width x height frame.
func NewProgressBar(width, height int, fraction float32) ProgressBar {
	return ProgressBar{
		Width:     width,
		Height:    height,
		Fraction:  fraction,
		Thickness: DefaultProgressThickness,
		Color:     common.RGBA{1, 1, 1, 1},
	}
}

func (p ProgressBar) Bounds() (int, int) {
	return p.Width, p.Height
}

func (p ProgressBar) At(x, y int) common.RGBA {
	if y < p.Height-p.Thickness || float32(x) >= common.Clamp(p.Fraction, 0, 1)*float32(p.Width) {
		return common.RGBA{}
	}
	a := p.Color[3]
	return common.RGBA{p.Color[0] * a, p.Color[1] * a, p.Color[2] * a, a}
}

package renderer

import (
	"image"
	"image/color"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/chewxy/math32"
)

// Image is a CPU-side RGBA float32 frame target. Pixels are row-major from the top-left.
type Image struct {
	Width  int
	Height int
	Pix    []float32
}

// NewImage allocates a cleared image.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]float32, width*height*4)}
}

// Offset returns the index of the pixel's red channel.
func (im *Image) Offset(x, y int) int {
	return (y*im.Width + x) * 4
}

// At returns the pixel at (x, y).
func (im *Image) At(x, y int) common.RGBA {
	o := im.Offset(x, y)
	return common.RGBA{im.Pix[o], im.Pix[o+1], im.Pix[o+2], im.Pix[o+3]}
}

// Set writes the pixel at (x, y).
func (im *Image) Set(x, y int, c common.RGBA) {
	o := im.Offset(x, y)
	copy(im.Pix[o:o+4], c[:])
}

// Fill sets every pixel to c.
func (im *Image) Fill(c common.RGBA) {
	for o := 0; o < len(im.Pix); o += 4 {
		copy(im.Pix[o:o+4], c[:])
	}
}

// Resize reallocates the image when the size changed and reports whether it did.
func (im *Image) Resize(width, height int) bool {
	if width == im.Width && height == im.Height {
		return false
	}
	im.Width, im.Height = width, height
	im.Pix = make([]float32, width*height*4)
	return true
}

// ToNRGBA converts display-ready values in [0, 1] to 8-bit.
func (im *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, im.Width, im.Height))
	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			c := im.At(x, y)
			out.SetNRGBA(x, y, color.NRGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(c[3])})
		}
	}
	return out
}

func to8(v float32) uint8 {
	if math32.IsNaN(v) {
		return 0
	}
	return uint8(common.Clamp(v, 0, 1)*255 + 0.5)
}

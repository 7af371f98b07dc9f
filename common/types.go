package common

// RGBA is a linear floating point color.
type RGBA [4]float32

// Viewport is the pixel size of an output target.
type Viewport struct {
	Width  int
	Height int
}

// Aspect returns width / height, or 1 for a degenerate viewport.
func (v Viewport) Aspect() float32 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// Pixels returns the number of pixels covered by the viewport.
func (v Viewport) Pixels() int {
	if v.Width <= 0 || v.Height <= 0 {
		return 0
	}
	return v.Width * v.Height
}

package animator

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Track maps an instance's base transform and an absolute time to its world transform.
// Implementations must be pure in t so that replaying the same time yields the same transform.
type Track interface {
	Transform(base mgl32.Mat4, t float64) mgl32.Mat4
}

// Orbit moves the instance around Center on a horizontal circle.
type Orbit struct {
	Center mgl32.Vec3
	Radius float32
	// Speed is in radians per second.
	Speed  float32
	Height float32
	Phase  float32
}

// Transform implements Track.
func (o Orbit) Transform(base mgl32.Mat4, t float64) mgl32.Mat4 {
	theta := o.Phase + o.Speed*float32(t)
	s, c := math32.Sincos(theta)
	offset := o.Center.Add(mgl32.Vec3{c * o.Radius, o.Height, s * o.Radius})
	// face the direction of travel
	facing := mgl32.HomogRotate3DY(-theta)
	return mgl32.Translate3D(offset[0], offset[1], offset[2]).Mul4(facing).Mul4(base)
}

// Spin rotates the instance about Axis through its own origin.
type Spin struct {
	Axis  mgl32.Vec3
	Speed float32
	Phase float32
}

// Transform implements Track.
func (s Spin) Transform(base mgl32.Mat4, t float64) mgl32.Mat4 {
	axis := s.Axis
	if axis.Len() == 0 {
		axis = mgl32.Vec3{0, 1, 0}
	}
	angle := s.Phase + s.Speed*float32(t)
	return base.Mul4(mgl32.HomogRotate3D(angle, axis.Normalize()))
}

// Bob translates the instance up and down along Y.
type Bob struct {
	Amplitude float32
	// Frequency is in hertz.
	Frequency float32
	Phase     float32
}

// Transform implements Track.
func (b Bob) Transform(base mgl32.Mat4, t float64) mgl32.Mat4 {
	y := b.Amplitude * math32.Sin(b.Phase+2*math32.Pi*b.Frequency*float32(t))
	return mgl32.Translate3D(0, y, 0).Mul4(base)
}

// Composite applies its tracks in order, each one receiving the previous result as its base.
type Composite struct {
	Tracks []Track
}

// Transform implements Track.
func (c Composite) Transform(base mgl32.Mat4, t float64) mgl32.Mat4 {
	m := base
	for _, tr := range c.Tracks {
		m = tr.Transform(m, t)
	}
	return m
}

// Static keeps the base transform. Useful for instances tagged animated that should hold still.
type Static struct{}

// Transform implements Track.
func (Static) Transform(base mgl32.Mat4, _ float64) mgl32.Mat4 {
	return base
}

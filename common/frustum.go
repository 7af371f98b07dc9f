package common

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustum extracts frustum planes from a view-projection matrix using the Gribb/Hartmann method.
// The near plane follows the WebGPU [0, 1] depth convention (row 2 alone, not row3 + row2).
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustum(viewProj mgl32.Mat4) Frustum {
	row := func(i int) mgl32.Vec4 { return viewProj.Row(i) }
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]mgl32.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r2,
		r3.Sub(r2),
	}

	var f Frustum
	for i, p := range planes {
		length := p.Vec3().Len()
		if length > 0 {
			p = p.Mul(1 / length)
		}
		f.Planes[i] = Plane{Normal: [3]float32{p[0], p[1], p[2]}, Distance: p[3]}
	}
	return f
}

// IntersectsAABB reports whether an axis-aligned box is at least partially inside the frustum.
// Uses the positive-vertex test: the box is outside when its farthest corner along a plane normal is behind it.
//
// Parameters:
//   - lo: minimum corner of the box
//   - hi: maximum corner of the box
//
// Returns:
//   - bool: false only when the box is fully outside one of the planes
func (f Frustum) IntersectsAABB(lo, hi [3]float32) bool {
	for _, p := range f.Planes {
		var d float32
		for a := 0; a < 3; a++ {
			if p.Normal[a] >= 0 {
				d += p.Normal[a] * hi[a]
			} else {
				d += p.Normal[a] * lo[a]
			}
		}
		if d+p.Distance < -1e-5*math32.Max(1, math32.Abs(p.Distance)) {
			return false
		}
	}
	return true
}

package accel

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Triangle is a pre-processed triangle for Möller-Trumbore intersection.
type Triangle struct {
	V0    mgl32.Vec3
	Edge1 mgl32.Vec3
	Edge2 mgl32.Vec3
	// Prim is the triangle index inside the source mesh.
	Prim uint32
}

const triangleEpsilon = 1e-8

// Intersect returns the hit distance and barycentrics (u, v) of the ray against the triangle.
// Triangles are two-sided to match the raster path, which draws without culling.
func (tri *Triangle) Intersect(r Ray, tMin, tMax float32) (t, u, v float32, ok bool) {
	p := r.Dir.Cross(tri.Edge2)
	det := tri.Edge1.Dot(p)
	if math32.Abs(det) < triangleEpsilon {
		return 0, 0, 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(tri.V0)
	u = s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}
	q := s.Cross(tri.Edge1)
	v = r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}
	t = tri.Edge2.Dot(q) * inv
	if t <= tMin || t >= tMax {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// Bounds returns the triangle's box.
func (tri *Triangle) Bounds() AABB {
	return EmptyAABB().
		Extend(tri.V0).
		Extend(tri.V0.Add(tri.Edge1)).
		Extend(tri.V0.Add(tri.Edge2))
}

package accel

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Extend or Union replaces.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// Valid reports whether the box encloses at least one point.
func (b AABB) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Extend grows the box to include p.
func (b AABB) Extend(p mgl32.Vec3) AABB {
	for a := 0; a < 3; a++ {
		b.Min[a] = math32.Min(b.Min[a], p[a])
		b.Max[a] = math32.Max(b.Max[a], p[a])
	}
	return b
}

// Union returns the smallest box enclosing both boxes.
func (b AABB) Union(o AABB) AABB {
	for a := 0; a < 3; a++ {
		b.Min[a] = math32.Min(b.Min[a], o.Min[a])
		b.Max[a] = math32.Max(b.Max[a], o.Max[a])
	}
	return b
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// LongestAxis returns 0, 1 or 2 for the widest extent.
func (b AABB) LongestAxis() int {
	d := b.Max.Sub(b.Min)
	switch {
	case d[0] >= d[1] && d[0] >= d[2]:
		return 0
	case d[1] >= d[2]:
		return 1
	default:
		return 2
	}
}

// SurfaceArea returns the box surface area, used for build statistics.
func (b AABB) SurfaceArea() float32 {
	if !b.Valid() {
		return 0
	}
	d := b.Max.Sub(b.Min)
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

// Transform returns the world-space box enclosing the eight transformed corners.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	if !b.Valid() {
		return b
	}
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		c := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		out = out.Extend(m.Mul4x1(c.Vec4(1)).Vec3())
	}
	return out
}

// Hit runs the slab test and returns the entry distance.
func (b AABB) Hit(r Ray, tMin, tMax float32) (float32, bool) {
	for a := 0; a < 3; a++ {
		t0 := (b.Min[a] - r.Origin[a]) * r.InvDir[a]
		t1 := (b.Max[a] - r.Origin[a]) * r.InvDir[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		// NaN from 0 * inf on a slab boundary keeps the current interval
		if t0 == t0 {
			tMin = math32.Max(tMin, t0)
		}
		if t1 == t1 {
			tMax = math32.Min(tMax, t1)
		}
		if tMax < tMin {
			return 0, false
		}
	}
	return tMin, true
}

// Ray is a half-line with a cached reciprocal direction.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
	InvDir mgl32.Vec3
}

// NewRay builds a ray; the direction is not normalized so object-space distances match world-space ones.
func NewRay(origin, dir mgl32.Vec3) Ray {
	return Ray{
		Origin: origin,
		Dir:    dir,
		InvDir: mgl32.Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]},
	}
}

// At returns the point at parameter t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Transform maps the ray through an affine matrix without renormalizing.
func (r Ray) Transform(m mgl32.Mat4) Ray {
	return NewRay(m.Mul4x1(r.Origin.Vec4(1)).Vec3(), m.Mul4x1(r.Dir.Vec4(0)).Vec3())
}

package geometry

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Primitive names accepted by AddPrimitive.
const (
	PrimitivePlane  = "plane"
	PrimitiveCube   = "cube"
	PrimitiveSphere = "sphere"
)

// AddPrimitive stores a built-in unit primitive with the given material and base transform.
//
// Parameters:
//   - kind: one of PrimitivePlane, PrimitiveCube, PrimitiveSphere
//   - mat: material applied to every triangle
//   - baseTransform: transform baked into the vertices
//
// Returns:
//   - MeshID: identifier of the stored mesh
//   - error: for unknown primitive kinds
func (s *Store) AddPrimitive(kind string, mat Material, baseTransform mgl32.Mat4) (MeshID, error) {
	var (
		vertices []Vertex
		indices  []uint32
	)
	switch kind {
	case PrimitivePlane:
		vertices, indices = Plane()
	case PrimitiveCube:
		vertices, indices = Cube()
	case PrimitiveSphere:
		vertices, indices = UVSphere(24, 48)
	default:
		return 0, fmt.Errorf("unknown primitive %q", kind)
	}
	return s.AddMesh(kind, vertices, indices, []Material{mat}, nil, baseTransform)
}

// Plane returns a unit square in the XZ plane centered at the origin, facing +Y.
func Plane() ([]Vertex, []uint32) {
	up := mgl32.Vec3{0, 1, 0}
	vertices := []Vertex{
		{Position: mgl32.Vec3{-0.5, 0, -0.5}, Normal: up, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{-0.5, 0, 0.5}, Normal: up, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{0.5, 0, 0.5}, Normal: up, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{0.5, 0, -0.5}, Normal: up, TexCoord: mgl32.Vec2{1, 0}},
	}
	return vertices, []uint32{0, 1, 2, 0, 2, 3}
}

// Cube returns a unit cube centered at the origin with per-face normals.
func Cube() ([]Vertex, []uint32) {
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}

	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		center := f.normal.Mul(0.5)
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := center.Add(f.u.Mul(c[0] * 0.5)).Add(f.v.Mul(c[1] * 0.5))
			vertices = append(vertices, Vertex{
				Position: p,
				Normal:   f.normal,
				TexCoord: mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2},
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// UVSphere returns a unit-radius sphere tessellated into rings x segments quads.
func UVSphere(rings, segments int) ([]Vertex, []uint32) {
	rings = max(rings, 2)
	segments = max(segments, 3)

	vertices := make([]Vertex, 0, (rings+1)*(segments+1))
	for r := 0; r <= rings; r++ {
		theta := math32.Pi * float32(r) / float32(rings)
		sinT, cosT := math32.Sincos(theta)
		for s := 0; s <= segments; s++ {
			phi := 2 * math32.Pi * float32(s) / float32(segments)
			sinP, cosP := math32.Sincos(phi)
			n := mgl32.Vec3{sinT * cosP, cosT, sinT * sinP}
			vertices = append(vertices, Vertex{
				Position: n,
				Normal:   n,
				TexCoord: mgl32.Vec2{float32(s) / float32(segments), float32(r) / float32(rings)},
			})
		}
	}

	stride := uint32(segments + 1)
	indices := make([]uint32, 0, rings*segments*6)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(segments); s++ {
			a := r*stride + s
			b := a + stride
			if r != 0 {
				indices = append(indices, a, a+1, b)
			}
			if r != uint32(rings)-1 {
				indices = append(indices, a+1, b+1, b)
			}
		}
	}
	return vertices, indices
}

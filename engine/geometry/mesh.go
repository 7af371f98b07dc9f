package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MeshID identifies a mesh inside a Store. IDs are dense and start at zero.
type MeshID uint32

// Vertex is the interleaved vertex layout shared by the raster and ray-tracing paths.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Material mirrors the Wavefront MTL record the viewer shades with.
type Material struct {
	Name      string
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Emission  mgl32.Vec3
	Shininess float32
	IOR       float32
	Dissolve  float32
	Illum     int32
}

// DefaultMaterial is used for faces that reference no material.
func DefaultMaterial() Material {
	return Material{
		Name:      "default",
		Ambient:   mgl32.Vec3{0.1, 0.1, 0.1},
		Diffuse:   mgl32.Vec3{0.7, 0.7, 0.7},
		Specular:  mgl32.Vec3{0.2, 0.2, 0.2},
		Shininess: 16,
		IOR:       1,
		Dissolve:  1,
		Illum:     2,
	}
}

// Bounds is an axis-aligned bounding box in mesh space.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Mesh is an immutable triangle mesh owned by a Store.
// Instances reference meshes by MeshID and never copy them.
type Mesh struct {
	ID        MeshID
	Name      string
	Vertices  []Vertex
	Indices   []uint32
	Materials []Material
	// MaterialIndices holds one entry per triangle indexing Materials.
	MaterialIndices []int32
	Bounds          Bounds
}

// TriangleCount returns the number of indexed triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangle returns the three vertex positions of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	return m.Vertices[m.Indices[3*i]].Position,
		m.Vertices[m.Indices[3*i+1]].Position,
		m.Vertices[m.Indices[3*i+2]].Position
}

// MaterialOf returns the material of triangle i, falling back to the default material.
func (m *Mesh) MaterialOf(i int) Material {
	if i < len(m.MaterialIndices) {
		if idx := m.MaterialIndices[i]; idx >= 0 && int(idx) < len(m.Materials) {
			return m.Materials[idx]
		}
	}
	return DefaultMaterial()
}

func computeBounds(vertices []Vertex) Bounds {
	if len(vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		for a := 0; a < 3; a++ {
			b.Min[a] = min(b.Min[a], v.Position[a])
			b.Max[a] = max(b.Max[a], v.Position[a])
		}
	}
	return b
}

// bake applies a base transform to positions and its normal matrix to normals.
// Faces without normals receive flat normals.
func bake(vertices []Vertex, indices []uint32, base mgl32.Mat4) {
	normalMat := base.Mat3()
	if det := normalMat.Det(); det > 1e-12 || det < -1e-12 {
		normalMat = normalMat.Inv().Transpose()
	} else {
		normalMat = mgl32.Ident3()
	}

	for i := range vertices {
		v := &vertices[i]
		v.Position = base.Mul4x1(v.Position.Vec4(1)).Vec3()
		if v.Normal.Len() > 0 {
			v.Normal = normalMat.Mul3x1(v.Normal).Normalize()
		}
	}

	for t := 0; t+2 < len(indices); t += 3 {
		ia, ib, ic := indices[t], indices[t+1], indices[t+2]
		a, b, c := vertices[ia].Position, vertices[ib].Position, vertices[ic].Position
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() == 0 {
			continue
		}
		n = n.Normalize()
		for _, idx := range [3]uint32{ia, ib, ic} {
			if vertices[idx].Normal.Len() == 0 {
				vertices[idx].Normal = n
			}
		}
	}
}

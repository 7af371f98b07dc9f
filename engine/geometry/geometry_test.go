package geometry

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]string

func (m mapResolver) Open(_, name string) (io.ReadCloser, error) {
	src, ok := m[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(strings.NewReader(src)), nil
}

const quadOBJ = `
# a quad split into two triangles by fan triangulation
mtllib quad.mtl
v -1 0 -1
v  1 0 -1
v  1 0  1
v -1 0  1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl red
f 1/1 4/4 3/3 2/2
`

const quadMTL = `
newmtl red
Kd 0.8 0.1 0.1
Ks 0.5 0.5 0.5
Ns 32
illum 2
`

func TestReadWavefrontFanAndMaterials(t *testing.T) {
	m, err := readWavefront(strings.NewReader(quadOBJ), "quad.obj", mapResolver{"quad.mtl": quadMTL})
	require.NoError(t, err)

	assert.Equal(t, "quad", m.name)
	assert.Len(t, m.vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.indices)
	require.Len(t, m.materials, 1)
	assert.Equal(t, "red", m.materials[0].Name)
	assert.InDelta(t, 0.8, m.materials[0].Diffuse.X(), 1e-6)
	assert.Equal(t, float32(32), m.materials[0].Shininess)
	assert.Equal(t, []int32{0, 0}, m.materialIndices)
}

func TestReadWavefrontNegativeIndicesAndDefaultMaterial(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf -3 -2 -1\n"
	m, err := readWavefront(strings.NewReader(src), "tri.obj", mapResolver{})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, m.indices)
	require.Len(t, m.materials, 1)
	assert.Equal(t, []int32{0}, m.materialIndices)
}

func TestReadWavefrontErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"short vertex", "v 0 0\n"},
		{"degenerate face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readWavefront(strings.NewReader(tt.src), "bad.obj", mapResolver{})
			assert.Error(t, err)
		})
	}
}

func TestStoreLoadMeshBakesTransform(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.obj")
	require.NoError(t, os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nv 0 0 -1\nf 1 2 3\n"), 0o644))

	s := NewStore()
	id, err := s.LoadMesh(path, mgl32.Scale3D(2, 1, 2))
	require.NoError(t, err)

	m, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, m.Vertices[1].Position)
	assert.Equal(t, mgl32.Vec3{0, 0, -2}, m.Bounds.Min)
	// flat normal generated for a face without vn records
	assert.InDelta(t, 1, m.Vertices[0].Normal.Y(), 1e-6)
}

func TestStoreLoadMeshMissingFile(t *testing.T) {
	s := NewStore()
	_, err := s.LoadMesh(filepath.Join(t.TempDir(), "missing.obj"), mgl32.Ident4())
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStoreRejectsBadIndices(t *testing.T) {
	s := NewStore()
	v, _ := Plane()
	_, err := s.AddMesh("bad", v, []uint32{0, 1}, nil, nil, mgl32.Ident4())
	assert.Error(t, err)
	_, err = s.AddMesh("bad", v, []uint32{0, 1, 9}, nil, nil, mgl32.Ident4())
	assert.Error(t, err)
}

func TestPrimitivesAreClosedAndIndexed(t *testing.T) {
	s := NewStore()
	for _, kind := range []string{PrimitivePlane, PrimitiveCube, PrimitiveSphere} {
		id, err := s.AddPrimitive(kind, DefaultMaterial(), mgl32.Ident4())
		require.NoError(t, err, kind)
		m, _ := s.Get(id)
		assert.Positive(t, m.TriangleCount(), kind)
		assert.Len(t, m.MaterialIndices, m.TriangleCount(), kind)
	}

	sphere, _ := s.Get(2)
	assert.InDelta(t, -1, sphere.Bounds.Min.Y(), 1e-5)
	assert.InDelta(t, 1, sphere.Bounds.Max.Y(), 1e-5)

	_, err := s.AddPrimitive("teapot", DefaultMaterial(), mgl32.Ident4())
	assert.Error(t, err)
}

func TestStoreRelease(t *testing.T) {
	s := NewStore()
	_, err := s.AddPrimitive(PrimitiveCube, DefaultMaterial(), mgl32.Ident4())
	require.NoError(t, err)
	s.Release()
	assert.Equal(t, 0, s.Len())
	_, err = s.AddPrimitive(PrimitiveCube, DefaultMaterial(), mgl32.Ident4())
	assert.Error(t, err)
}

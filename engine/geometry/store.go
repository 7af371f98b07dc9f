package geometry

import (
	"fmt"
	"os"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("geometry")

// Store owns every mesh loaded for the active scene.
// Meshes are immutable after insertion; the store is safe for concurrent reads and inserts.
type Store struct {
	mu       sync.RWMutex
	meshes   []*Mesh
	released bool
}

// NewStore creates an empty geometry store.
func NewStore() *Store {
	return &Store{}
}

// LoadMesh parses a Wavefront OBJ file, bakes baseTransform into it and stores the result.
//
// Parameters:
//   - path: filesystem path to a readable .obj file; referenced .mtl libraries resolve relative to it
//   - baseTransform: affine transform applied to positions (normals use its inverse transpose)
//
// Returns:
//   - MeshID: identifier of the stored mesh
//   - error: when the file cannot be read, parsed, or contains no triangles
func (s *Store) LoadMesh(path string, baseTransform mgl32.Mat4) (MeshID, error) {
	m, err := ReadMesh(path, baseTransform)
	if err != nil {
		return 0, err
	}
	return s.Insert(m)
}

// ReadMesh parses and bakes a Wavefront OBJ file without storing it, so several files can be
// read concurrently and inserted in a fixed order afterwards.
//
// Parameters:
//   - path: filesystem path to a readable .obj file
//   - baseTransform: affine transform baked into the vertices
//
// Returns:
//   - *Mesh: the mesh with no ID assigned yet
//   - error: when the file cannot be read, parsed, or contains no triangles
func ReadMesh(path string, baseTransform mgl32.Mat4) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading mesh %s: %w", path, err)
	}
	defer f.Close()

	parsed, err := readWavefront(f, path, osResolver{})
	if err != nil {
		return nil, fmt.Errorf("loading mesh %s: %w", path, err)
	}
	if len(parsed.indices) == 0 {
		return nil, fmt.Errorf("loading mesh %s: no triangles", path)
	}
	m, err := newMesh(parsed.name, parsed.vertices, parsed.indices, parsed.materials, parsed.materialIndices, baseTransform)
	if err != nil {
		return nil, err
	}
	logger.Infof("loaded %s: %d vertices, %d triangles, %d materials",
		path, len(parsed.vertices), len(parsed.indices)/3, len(parsed.materials))
	return m, nil
}

// AddMesh stores a procedurally generated mesh. The slices are owned by the store afterwards.
//
// Parameters:
//   - name: display name for logs and statistics
//   - vertices: vertex array
//   - indices: triangle list indices into vertices
//   - materials: material records (may be empty)
//   - materialIndices: per-triangle material index (may be nil for material 0 / default)
//   - baseTransform: transform baked into the vertices
//
// Returns:
//   - MeshID: identifier of the stored mesh
//   - error: when indices are malformed or the store was released
func (s *Store) AddMesh(name string, vertices []Vertex, indices []uint32, materials []Material, materialIndices []int32, baseTransform mgl32.Mat4) (MeshID, error) {
	m, err := newMesh(name, vertices, indices, materials, materialIndices, baseTransform)
	if err != nil {
		return 0, err
	}
	return s.Insert(m)
}

func newMesh(name string, vertices []Vertex, indices []uint32, materials []Material, materialIndices []int32, baseTransform mgl32.Mat4) (*Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("mesh %s: index count %d is not a multiple of 3", name, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("mesh %s: index %d out of range (%d vertices)", name, idx, len(vertices))
		}
	}
	if len(materials) == 0 {
		materials = []Material{DefaultMaterial()}
	}
	if materialIndices == nil {
		materialIndices = make([]int32, len(indices)/3)
	}

	bake(vertices, indices, baseTransform)
	return &Mesh{
		Name:            name,
		Vertices:        vertices,
		Indices:         indices,
		Materials:       materials,
		MaterialIndices: materialIndices,
		Bounds:          computeBounds(vertices),
	}, nil
}

// Insert stores a mesh produced by ReadMesh and assigns its ID.
func (s *Store) Insert(m *Mesh) (MeshID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return 0, fmt.Errorf("mesh %s: geometry store already released", m.Name)
	}
	m.ID = MeshID(len(s.meshes))
	s.meshes = append(s.meshes, m)
	return m.ID, nil
}

// Get returns the mesh with the given id.
func (s *Store) Get(id MeshID) (*Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.meshes) {
		return nil, false
	}
	return s.meshes[id], true
}

// Meshes returns every stored mesh in id order.
func (s *Store) Meshes() []*Mesh {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Mesh, len(s.meshes))
	copy(out, s.meshes)
	return out
}

// Len returns the number of stored meshes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

// Release drops every mesh. It is the last step of scene teardown.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes = nil
	s.released = true
}

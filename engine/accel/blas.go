package accel

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
)

var logger = log.New("accel")

// BLASHandle is a dense index identifying a bottom-level structure; GPU buffers are addressed by it.
type BLASHandle uint32

// BuildFlags mirror the hints a hardware acceleration-structure build accepts.
type BuildFlags uint32

const (
	BuildPreferFastTrace BuildFlags = 1 << iota
	BuildPreferFastBuild
	BuildAllowUpdate
	BuildAllowCompaction
)

// BLASRecord is the bottom-level structure of one mesh. Built once, never rebuilt.
type BLASRecord struct {
	Mesh      *geometry.Mesh
	Handle    BLASHandle
	BVH       BVH
	Triangles []Triangle
	Flags     BuildFlags
	BuiltAt   time.Time
}

// Residency receives acceleration structures after they are built, typically to upload them to the GPU.
// Uploads are ordered on the device queue ahead of any later dispatch, which is the build-to-use barrier.
type Residency interface {
	ResidentBLAS(rec *BLASRecord) error
	// ResidentTLAS is called with the structure's lock held; it must not call back into the TLAS.
	ResidentTLAS(instances []TLASInstance, nodes BVH) error
}

// BLASSet owns one bottom-level structure per mesh that has at least one instance.
type BLASSet struct {
	mu        sync.RWMutex
	records   map[geometry.MeshID]*BLASRecord
	byHandle  []*BLASRecord
	residency Residency
	leafSize  int
	flags     BuildFlags
	pool      worker.DynamicWorkerPool
	workers   int
}

// NewBLASSet creates an empty set.
//
// Parameters:
//   - options: functional options (residency sink, leaf size, worker count)
//
// Returns:
//   - *BLASSet: the set
func NewBLASSet(options ...BLASSetBuilderOption) *BLASSet {
	s := &BLASSet{
		records:  make(map[geometry.MeshID]*BLASRecord),
		leafSize: DefaultLeafSize,
		flags:    BuildPreferFastTrace,
		workers:  max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(s)
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, 64, 1*time.Second)
	return s
}

// EnsureBuilt builds the mesh's BLAS exactly once; later calls are no-ops.
func (s *BLASSet) EnsureBuilt(mesh *geometry.Mesh) error {
	if mesh == nil {
		return fmt.Errorf("ensure blas: nil mesh")
	}
	s.mu.RLock()
	_, ok := s.records[mesh.ID]
	s.mu.RUnlock()
	if ok {
		return nil
	}
	return s.insert(s.build(mesh))
}

// EnsureAll builds every missing BLAS among meshes, running the CPU builds on the worker pool.
// Residency uploads happen afterwards on the calling goroutine, in mesh order.
func (s *BLASSet) EnsureAll(meshes []*geometry.Mesh) error {
	s.mu.RLock()
	var missing []*geometry.Mesh
	seen := make(map[geometry.MeshID]bool)
	for _, m := range meshes {
		if m == nil || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		if _, ok := s.records[m.ID]; !ok {
			missing = append(missing, m)
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return nil
	}

	built := make([]*BLASRecord, len(missing))
	var wg sync.WaitGroup
	for i, m := range missing {
		wg.Add(1)
		idx, mesh := i, m
		s.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				built[idx] = s.build(mesh)
				return nil, nil
			},
		})
	}
	wg.Wait()

	for _, rec := range built {
		if err := s.insert(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *BLASSet) build(mesh *geometry.Mesh) *BLASRecord {
	start := time.Now()
	tris := make([]Triangle, mesh.TriangleCount())
	bounds := make([]AABB, len(tris))
	for i := range tris {
		a, b, c := mesh.Triangle(i)
		tris[i] = Triangle{V0: a, Edge1: b.Sub(a), Edge2: c.Sub(a), Prim: uint32(i)}
		bounds[i] = tris[i].Bounds()
	}
	bvh := BuildBVH(bounds, s.leafSize)

	// store triangles in leaf order so GPU leaves address a contiguous range
	ordered := make([]Triangle, len(tris))
	for slot, p := range bvh.Order {
		ordered[slot] = tris[p]
		bvh.Order[slot] = uint32(slot)
	}

	logger.Debugf("built blas for mesh %d (%s): %d triangles, %d nodes in %s",
		mesh.ID, mesh.Name, len(tris), len(bvh.Nodes), time.Since(start))
	return &BLASRecord{
		Mesh:      mesh,
		BVH:       bvh,
		Triangles: ordered,
		Flags:     s.flags,
		BuiltAt:   time.Now(),
	}
}

// insert uploads rec and publishes it under the next handle. The lock is held across the upload
// so a failed upload leaves no gap in the handle sequence.
func (s *BLASSet) insert(rec *BLASRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.Mesh.ID]; ok {
		return nil
	}
	rec.Handle = BLASHandle(len(s.byHandle))
	if s.residency != nil {
		if err := s.residency.ResidentBLAS(rec); err != nil {
			return fmt.Errorf("uploading blas for mesh %d: %w", rec.Mesh.ID, err)
		}
	}
	s.records[rec.Mesh.ID] = rec
	s.byHandle = append(s.byHandle, rec)
	return nil
}

// Handle returns the BLAS handle of a mesh, or a NotBuiltError before EnsureBuilt.
func (s *BLASSet) Handle(mesh geometry.MeshID) (BLASHandle, error) {
	rec, err := s.Record(mesh)
	if err != nil {
		return 0, err
	}
	return rec.Handle, nil
}

// Record returns the full BLAS record of a mesh, or a NotBuiltError before EnsureBuilt.
func (s *BLASSet) Record(mesh geometry.MeshID) (*BLASRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[mesh]
	if !ok {
		return nil, &rterr.NotBuiltError{Resource: "blas", Key: fmt.Sprintf("mesh %d", mesh)}
	}
	return rec, nil
}

// Records returns every record ordered by handle.
func (s *BLASSet) Records() []*BLASRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*BLASRecord, len(s.byHandle))
	copy(out, s.byHandle)
	return out
}

// Len returns the number of built structures.
func (s *BLASSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byHandle)
}

// Release drops every record. The TLAS must be released first.
func (s *BLASSet) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[geometry.MeshID]*BLASRecord)
	s.byHandle = nil
}

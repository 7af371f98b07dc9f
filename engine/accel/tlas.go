package accel

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// UpdatePolicy selects how the TLAS follows transform-only changes.
type UpdatePolicy int

const (
	// PolicyRefit refits node bounds in place when only transforms changed.
	PolicyRefit UpdatePolicy = iota
	// PolicyRebuild always rebuilds from scratch.
	PolicyRebuild
)

// ParsePolicy maps "refit" or "rebuild" to a policy.
func ParsePolicy(s string) (UpdatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "refit":
		return PolicyRefit, nil
	case "rebuild":
		return PolicyRebuild, nil
	}
	return PolicyRefit, fmt.Errorf("unknown tlas policy %q", s)
}

func (p UpdatePolicy) String() string {
	if p == PolicyRebuild {
		return "rebuild"
	}
	return "refit"
}

// UpdateKind reports what an Update did.
type UpdateKind int

const (
	UpdateNone UpdateKind = iota
	UpdateRebuilt
	UpdateRefitted
	UpdateCleared
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateRebuilt:
		return "rebuilt"
	case UpdateRefitted:
		return "refitted"
	case UpdateCleared:
		return "cleared"
	}
	return "none"
}

// DefaultInstanceMask makes an instance visible to every ray.
const DefaultInstanceMask uint8 = 0xFF

// TLASInstance is one entry of the top-level structure.
type TLASInstance struct {
	Source scene.Instance
	BLAS   *BLASRecord
	// WorldToObject moves rays into the BLAS's space.
	WorldToObject mgl32.Mat4
	Bounds        AABB
	// CustomIndex is the instance's position in the snapshot, reported back on hit.
	CustomIndex uint32
	Mask        uint8
	// SBTOffset selects the hit group record; every instance shares group 0.
	SBTOffset uint32
}

// Hit describes the closest intersection found by Intersect.
type Hit struct {
	T float32
	U float32
	V float32
	// Instance indexes TLAS.Instances.
	Instance int
	// Prim is the triangle index in the source mesh.
	Prim   uint32
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// TLAS is the top-level structure over the instance table.
// Generation records the instance-table generation it was last built or refitted against.
type TLAS struct {
	mu           sync.RWMutex
	blas         *BLASSet
	residency    Residency
	policy       UpdatePolicy
	maxInstances int
	leafSize     int

	instances  []TLASInstance
	bvh        BVH
	meshes     []geometry.MeshID
	generation uint64
	valid      bool

	rebuilds int
	refits   int
}

// NewTLAS creates an empty top-level structure over the given BLAS set.
//
// Parameters:
//   - blas: the bottom-level structures instances reference
//   - options: functional options (policy, instance limit, residency)
//
// Returns:
//   - *TLAS: the structure; it holds nothing until Update is called
func NewTLAS(blas *BLASSet, options ...TLASBuilderOption) *TLAS {
	t := &TLAS{
		blas:     blas,
		policy:   PolicyRefit,
		leafSize: 2,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// NeedsRebuild reports whether a TLAS at tlasGen is behind the instance table at tableGen.
func NeedsRebuild(tlasGen, tableGen uint64) bool {
	return tlasGen < tableGen
}

// Update brings the structure in line with snap. Transform-only changes refit under PolicyRefit;
// a changed instance count or mesh mapping always rebuilds. An empty snapshot clears the structure
// without building anything.
func (t *TLAS) Update(snap scene.Snapshot) (UpdateKind, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.valid && !NeedsRebuild(t.generation, snap.Generation) {
		return UpdateNone, nil
	}

	if len(snap.Instances) == 0 {
		t.instances = nil
		t.bvh = BVH{}
		t.meshes = nil
		t.generation = snap.Generation
		t.valid = true
		return UpdateCleared, t.upload()
	}

	if t.maxInstances > 0 && len(snap.Instances) > t.maxInstances {
		return UpdateNone, &rterr.ResourceExhaustionError{
			Resource:  "tlas instances",
			Requested: uint64(len(snap.Instances)),
		}
	}

	if t.policy == PolicyRefit && t.valid && t.sameLayout(snap) {
		if err := t.refit(snap); err != nil {
			return UpdateNone, err
		}
		t.refits++
		return UpdateRefitted, t.upload()
	}

	if err := t.rebuild(snap); err != nil {
		return UpdateNone, err
	}
	t.rebuilds++
	return UpdateRebuilt, t.upload()
}

// Rebuild forces a full build from snap regardless of policy.
func (t *TLAS) Rebuild(snap scene.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(snap.Instances) == 0 {
		t.instances, t.bvh, t.meshes = nil, BVH{}, nil
		t.generation, t.valid = snap.Generation, true
		return t.upload()
	}
	if err := t.rebuild(snap); err != nil {
		return err
	}
	t.rebuilds++
	return t.upload()
}

func (t *TLAS) sameLayout(snap scene.Snapshot) bool {
	if len(snap.Instances) != len(t.meshes) {
		return false
	}
	for i, inst := range snap.Instances {
		if inst.Mesh != t.meshes[i] {
			return false
		}
	}
	return true
}

func (t *TLAS) instancesFor(snap scene.Snapshot) ([]TLASInstance, []AABB, error) {
	out := make([]TLASInstance, len(snap.Instances))
	bounds := make([]AABB, len(snap.Instances))
	for i, inst := range snap.Instances {
		rec, err := t.blas.Record(inst.Mesh)
		if err != nil {
			return nil, nil, fmt.Errorf("instance %d: %w", inst.ID, err)
		}
		b := rec.BVH.Bounds().Transform(inst.World)
		out[i] = TLASInstance{
			Source:        inst,
			BLAS:          rec,
			WorldToObject: inst.World.Inv(),
			Bounds:        b,
			CustomIndex:   uint32(i),
			Mask:          DefaultInstanceMask,
		}
		bounds[i] = b
	}
	return out, bounds, nil
}

func (t *TLAS) rebuild(snap scene.Snapshot) error {
	instances, bounds, err := t.instancesFor(snap)
	if err != nil {
		return err
	}
	t.instances = instances
	t.bvh = BuildBVH(bounds, t.leafSize)
	t.meshes = make([]geometry.MeshID, len(instances))
	for i, inst := range instances {
		t.meshes[i] = inst.Source.Mesh
	}
	t.generation = snap.Generation
	t.valid = true
	logger.Debugf("tlas rebuilt at generation %d: %d instances", t.generation, len(instances))
	return nil
}

func (t *TLAS) refit(snap scene.Snapshot) error {
	instances, bounds, err := t.instancesFor(snap)
	if err != nil {
		return err
	}
	t.instances = instances
	t.bvh.Refit(bounds)
	t.generation = snap.Generation
	logger.Debugf("tlas refitted at generation %d", t.generation)
	return nil
}

func (t *TLAS) upload() error {
	if t.residency == nil {
		return nil
	}
	return t.residency.ResidentTLAS(t.instances, t.bvh)
}

// Generation returns the instance-table generation the structure reflects.
func (t *TLAS) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Built reports whether Update or Rebuild has run at least once.
func (t *TLAS) Built() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.valid
}

// Empty reports whether the structure holds no instances.
func (t *TLAS) Empty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.instances) == 0
}

// Instances returns the current instance records. The slice must not be modified.
func (t *TLAS) Instances() []TLASInstance {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.instances
}

// Nodes returns the flattened top-level hierarchy. The slice must not be modified.
func (t *TLAS) Nodes() BVH {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bvh
}

// Counters returns how many rebuilds and refits have run.
func (t *TLAS) Counters() (rebuilds, refits int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rebuilds, t.refits
}

// Policy returns the active update policy.
func (t *TLAS) Policy() UpdatePolicy {
	return t.policy
}

// Intersect finds the closest hit along r within (tMin, tMax).
func (t *TLAS) Intersect(r Ray, tMin, tMax float32) (Hit, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trace(r, tMin, tMax, false)
}

// Occluded reports whether anything blocks r within (tMin, tMax).
func (t *TLAS) Occluded(r Ray, tMin, tMax float32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.trace(r, tMin, tMax, true)
	return ok
}

func (t *TLAS) trace(r Ray, tMin, tMax float32, anyHit bool) (Hit, bool) {
	var best Hit
	found := false
	if len(t.instances) == 0 {
		return best, false
	}

	t.bvh.Traverse(r, tMin, tMax, func(idx uint32, limit float32) (float32, bool) {
		inst := &t.instances[idx]
		local := r.Transform(inst.WorldToObject)
		rec := inst.BLAS
		rec.BVH.Traverse(local, tMin, limit, func(tri uint32, triMax float32) (float32, bool) {
			tr := &rec.Triangles[tri]
			d, u, v, ok := tr.Intersect(local, tMin, triMax)
			if !ok {
				return triMax, false
			}
			found = true
			limit = d
			best = Hit{T: d, U: u, V: v, Instance: int(inst.CustomIndex), Prim: tr.Prim}
			best.Normal = tr.Edge1.Cross(tr.Edge2)
			return d, anyHit
		})
		return limit, anyHit && found
	})

	if !found {
		return best, false
	}
	inst := &t.instances[best.Instance]
	best.Point = r.At(best.T)
	n := inst.Source.Normal.Mul3x1(best.Normal)
	if l := n.Len(); l > 0 && !math32.IsNaN(l) {
		n = n.Mul(1 / l)
	}
	best.Normal = n
	return best, true
}

// Release drops all instance data. Call before releasing the BLAS set.
func (t *TLAS) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.instances = nil
	t.bvh = BVH{}
	t.meshes = nil
	t.valid = false
}

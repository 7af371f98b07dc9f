package scene

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

// InstanceID identifies an instance for the lifetime of the table. IDs are never reused.
type InstanceID uint32

// NoMaterialOverride marks an instance that shades with its mesh's own materials.
const NoMaterialOverride int32 = -1

// Instance places a mesh in the world.
type Instance struct {
	ID   InstanceID
	Mesh geometry.MeshID
	// World is the object-to-world transform.
	World mgl32.Mat4
	// Normal is the inverse transpose of World's upper 3x3.
	Normal           mgl32.Mat3
	MaterialOverride int32
	Animated         bool
}

// Snapshot is an immutable, generation-stamped copy of the table that rendering components read.
type Snapshot struct {
	Generation uint64
	Instances  []Instance
}

// MeshesInUse returns the distinct meshes referenced by the snapshot in ascending order.
func (s Snapshot) MeshesInUse() []geometry.MeshID {
	seen := make(map[geometry.MeshID]struct{}, len(s.Instances))
	out := make([]geometry.MeshID, 0)
	for _, inst := range s.Instances {
		if _, ok := seen[inst.Mesh]; ok {
			continue
		}
		seen[inst.Mesh] = struct{}{}
		out = append(out, inst.Mesh)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MeshLookup reports whether a mesh exists. *geometry.Store satisfies it.
type MeshLookup interface {
	Get(id geometry.MeshID) (*geometry.Mesh, bool)
}

// InstanceOption configures an instance at creation time.
type InstanceOption func(*Instance)

// WithTransform sets the initial world transform (identity when omitted).
func WithTransform(m mgl32.Mat4) InstanceOption {
	return func(i *Instance) {
		i.World = m
	}
}

// WithMaterialOverride shades every triangle of the instance with one material of its mesh.
func WithMaterialOverride(material int32) InstanceOption {
	return func(i *Instance) {
		i.MaterialOverride = material
	}
}

// WithAnimated tags the instance for the animation driver.
func WithAnimated(animated bool) InstanceOption {
	return func(i *Instance) {
		i.Animated = animated
	}
}

// InstanceTable is the mutable list of placed meshes plus a generation counter.
// The generation increases by exactly one for every call that changes a transform or the instance count.
// It is written only by the animation driver and scene-edit operations; renderers read Snapshots.
type InstanceTable struct {
	mu         sync.RWMutex
	meshes     MeshLookup
	instances  []Instance
	index      map[InstanceID]int
	nextID     InstanceID
	generation uint64
}

// NewInstanceTable creates an empty table validating mesh references against meshes.
func NewInstanceTable(meshes MeshLookup) *InstanceTable {
	return &InstanceTable{
		meshes: meshes,
		index:  make(map[InstanceID]int),
	}
}

// AddInstance places a mesh in the world.
//
// Parameters:
//   - mesh: the mesh to reference; must exist in the geometry store
//   - opts: optional transform, material override and animation tag
//
// Returns:
//   - InstanceID: the new instance's id
//   - error: when the mesh is unknown
func (t *InstanceTable) AddInstance(mesh geometry.MeshID, opts ...InstanceOption) (InstanceID, error) {
	if t.meshes != nil {
		if _, ok := t.meshes.Get(mesh); !ok {
			return 0, fmt.Errorf("add instance: unknown mesh %d", mesh)
		}
	}

	inst := Instance{
		Mesh:             mesh,
		World:            mgl32.Ident4(),
		MaterialOverride: NoMaterialOverride,
	}
	for _, opt := range opts {
		opt(&inst)
	}
	inst.Normal = common.NormalMatrix(inst.World)

	t.mu.Lock()
	defer t.mu.Unlock()

	inst.ID = t.nextID
	t.nextID++
	t.index[inst.ID] = len(t.instances)
	t.instances = append(t.instances, inst)
	t.generation++
	return inst.ID, nil
}

// RemoveInstance deletes an instance, preserving the order of the remaining ones.
func (t *InstanceTable) RemoveInstance(id InstanceID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.index[id]
	if !ok {
		return fmt.Errorf("remove instance: unknown instance %d", id)
	}
	t.instances = append(t.instances[:pos], t.instances[pos+1:]...)
	delete(t.index, id)
	for i := pos; i < len(t.instances); i++ {
		t.index[t.instances[i].ID] = i
	}
	t.generation++
	return nil
}

// TransformTx stages transform changes inside UpdateTransforms.
type TransformTx struct {
	table   *InstanceTable
	changed bool
}

// Set replaces an instance's world transform. Setting an identical matrix is not a change.
func (tx *TransformTx) Set(id InstanceID, world mgl32.Mat4) error {
	pos, ok := tx.table.index[id]
	if !ok {
		return fmt.Errorf("set transform: unknown instance %d", id)
	}
	inst := &tx.table.instances[pos]
	if inst.World == world {
		return nil
	}
	inst.World = world
	inst.Normal = common.NormalMatrix(world)
	tx.changed = true
	return nil
}

// Get returns the current state of an instance inside the transaction.
func (tx *TransformTx) Get(id InstanceID) (Instance, bool) {
	pos, ok := tx.table.index[id]
	if !ok {
		return Instance{}, false
	}
	return tx.table.instances[pos], true
}

// UpdateTransforms applies a batch of transform changes under one lock and bumps the
// generation once if anything changed, regardless of how many instances moved.
//
// Parameters:
//   - fn: callback staging changes through the transaction; a returned error is propagated
//     and changes made before it are kept (the generation still reflects them)
//
// Returns:
//   - bool: whether any transform changed
//   - error: the callback's error
func (t *InstanceTable) UpdateTransforms(fn func(tx *TransformTx) error) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := &TransformTx{table: t}
	err := fn(tx)
	if tx.changed {
		t.generation++
	}
	return tx.changed, err
}

// Snapshot copies the table for rendering.
func (t *InstanceTable) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Instance, len(t.instances))
	copy(out, t.instances)
	return Snapshot{Generation: t.generation, Instances: out}
}

// Generation returns the current generation counter.
func (t *InstanceTable) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Len returns the number of instances.
func (t *InstanceTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.instances)
}

// Get returns an instance by id.
func (t *InstanceTable) Get(id InstanceID) (Instance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.index[id]
	if !ok {
		return Instance{}, false
	}
	return t.instances[pos], true
}

// Clear drops every instance at scene teardown.
func (t *InstanceTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.instances) == 0 {
		return
	}
	t.instances = nil
	t.index = make(map[InstanceID]int)
	t.generation++
}

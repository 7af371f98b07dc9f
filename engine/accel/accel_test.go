package accel

import (
	"errors"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResidency struct {
	blas int
	tlas int
}

func (c *countingResidency) ResidentBLAS(*BLASRecord) error         { c.blas++; return nil }
func (c *countingResidency) ResidentTLAS([]TLASInstance, BVH) error { c.tlas++; return nil }

// rejectingResidency fails every upload of one mesh.
type rejectingResidency struct {
	reject geometry.MeshID
}

func (r *rejectingResidency) ResidentBLAS(rec *BLASRecord) error {
	if rec.Mesh.ID == r.reject {
		return &rterr.ResourceExhaustionError{Resource: "blas buffer"}
	}
	return nil
}

func (r *rejectingResidency) ResidentTLAS([]TLASInstance, BVH) error { return nil }

func newCubeScene(t *testing.T) (*geometry.Store, geometry.MeshID, *scene.InstanceTable) {
	t.Helper()
	store := geometry.NewStore()
	id, err := store.AddPrimitive(geometry.PrimitiveCube, geometry.DefaultMaterial(), mgl32.Ident4())
	require.NoError(t, err)
	return store, id, scene.NewInstanceTable(store)
}

func TestBuildBVHLeafSize(t *testing.T) {
	bounds := make([]AABB, 37)
	for i := range bounds {
		p := mgl32.Vec3{float32(i), 0, 0}
		bounds[i] = AABB{Min: p, Max: p.Add(mgl32.Vec3{0.5, 0.5, 0.5})}
	}
	bvh := BuildBVH(bounds, 4)
	stats := bvh.Stats()
	assert.LessOrEqual(t, stats.MaxLeaf, 4)
	assert.Len(t, bvh.Order, 37)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, bvh.Bounds().Min)
	assert.Equal(t, mgl32.Vec3{36.5, 0.5, 0.5}, bvh.Bounds().Max)

	seen := map[uint32]bool{}
	for _, p := range bvh.Order {
		seen[p] = true
	}
	assert.Len(t, seen, 37)
}

func TestTriangleIntersectTwoSided(t *testing.T) {
	tri := Triangle{V0: mgl32.Vec3{-1, -1, 0}, Edge1: mgl32.Vec3{2, 0, 0}, Edge2: mgl32.Vec3{0, 2, 0}}
	front := NewRay(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1})
	back := NewRay(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 1})

	d, _, _, ok := tri.Intersect(front, 0, 100)
	require.True(t, ok)
	assert.InDelta(t, 5, d, 1e-5)
	_, _, _, ok = tri.Intersect(back, 0, 100)
	assert.True(t, ok)

	miss := NewRay(mgl32.Vec3{3, 3, 5}, mgl32.Vec3{0, 0, -1})
	_, _, _, ok = tri.Intersect(miss, 0, 100)
	assert.False(t, ok)
}

func TestNeedsRebuild(t *testing.T) {
	cases := []struct {
		tlas, table uint64
		want        bool
	}{
		{0, 0, false},
		{0, 1, true},
		{3, 3, false},
		{3, 7, true},
		{7, 3, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NeedsRebuild(c.tlas, c.table), "tlas=%d table=%d", c.tlas, c.table)
	}
}

func TestBLASHandleBeforeBuild(t *testing.T) {
	store, id, _ := newCubeScene(t)
	set := NewBLASSet()

	_, err := set.Handle(id)
	var nb *rterr.NotBuiltError
	require.True(t, errors.As(err, &nb))
	assert.True(t, errors.Is(err, rterr.ErrNotBuilt))

	mesh, _ := store.Get(id)
	require.NoError(t, set.EnsureBuilt(mesh))
	h, err := set.Handle(id)
	require.NoError(t, err)
	assert.Equal(t, BLASHandle(0), h)
}

func TestBLASBuiltOnce(t *testing.T) {
	store, id, _ := newCubeScene(t)
	sphere, err := store.AddPrimitive(geometry.PrimitiveSphere, geometry.DefaultMaterial(), mgl32.Ident4())
	require.NoError(t, err)

	res := &countingResidency{}
	set := NewBLASSet(WithBLASResidency(res), WithBuildWorkers(2))
	cube, _ := store.Get(id)
	sph, _ := store.Get(sphere)

	require.NoError(t, set.EnsureAll([]*geometry.Mesh{cube, sph, cube}))
	require.NoError(t, set.EnsureAll([]*geometry.Mesh{cube, sph}))
	require.NoError(t, set.EnsureBuilt(cube))

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 2, res.blas)

	rec, err := set.Record(id)
	require.NoError(t, err)
	assert.Len(t, rec.Triangles, cube.TriangleCount())
}

func TestBLASFailedUploadKeepsHandlesDense(t *testing.T) {
	store := geometry.NewStore()
	var meshes []*geometry.Mesh
	for range 8 {
		id, err := store.AddPrimitive(geometry.PrimitiveCube, geometry.DefaultMaterial(), mgl32.Ident4())
		require.NoError(t, err)
		m, _ := store.Get(id)
		meshes = append(meshes, m)
	}
	res := &rejectingResidency{reject: meshes[3].ID}
	set := NewBLASSet(WithBLASResidency(res))

	var wg sync.WaitGroup
	errs := make([]error, len(meshes))
	for i, m := range meshes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = set.EnsureBuilt(m)
		}()
	}
	wg.Wait()

	assert.ErrorIs(t, errs[3], rterr.ErrResourceExhausted)
	assert.Equal(t, len(meshes)-1, set.Len())
	for i, rec := range set.Records() {
		require.NotNil(t, rec)
		assert.Equal(t, BLASHandle(i), rec.Handle)
	}
	_, err := set.Handle(meshes[3].ID)
	assert.ErrorIs(t, err, rterr.ErrNotBuilt)

	res.reject = geometry.MeshID(len(meshes))
	require.NoError(t, set.EnsureBuilt(meshes[3]))
	h, err := set.Handle(meshes[3].ID)
	require.NoError(t, err)
	assert.Equal(t, BLASHandle(len(meshes)-1), h)
}

func TestTLASRefitMatchesRebuild(t *testing.T) {
	store, id, table := newCubeScene(t)
	var ids []scene.InstanceID
	for i := 0; i < 6; i++ {
		iid, err := table.AddInstance(id, scene.WithTransform(mgl32.Translate3D(float32(i)*3, 0, 0)))
		require.NoError(t, err)
		ids = append(ids, iid)
	}
	set := NewBLASSet()
	mesh, _ := store.Get(id)
	require.NoError(t, set.EnsureBuilt(mesh))

	refit := NewTLAS(set, WithPolicy(PolicyRefit))
	rebuild := NewTLAS(set, WithPolicy(PolicyRebuild))
	kind, err := refit.Update(table.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, UpdateRebuilt, kind)
	_, err = rebuild.Update(table.Snapshot())
	require.NoError(t, err)

	_, err = table.UpdateTransforms(func(tx *scene.TransformTx) error {
		for i, iid := range ids {
			if err := tx.Set(iid, mgl32.Translate3D(float32(i)*3, float32(i), 1)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	snap := table.Snapshot()
	kind, err = refit.Update(snap)
	require.NoError(t, err)
	assert.Equal(t, UpdateRefitted, kind)
	kind, err = rebuild.Update(snap)
	require.NoError(t, err)
	assert.Equal(t, UpdateRebuilt, kind)
	assert.Equal(t, snap.Generation, refit.Generation())

	for i := range ids {
		r := NewRay(mgl32.Vec3{float32(i) * 3, float32(i), 10}, mgl32.Vec3{0, 0, -1})
		a, okA := refit.Intersect(r, 1e-4, 1e9)
		b, okB := rebuild.Intersect(r, 1e-4, 1e9)
		require.True(t, okA)
		require.True(t, okB)
		assert.InDelta(t, b.T, a.T, 1e-5)
		assert.Equal(t, b.Instance, a.Instance)
		assert.Equal(t, i, a.Instance)
		assert.InDelta(t, 1, math32.Abs(a.Normal.Z()), 1e-5)
		assert.InDelta(t, 8.5, a.T, 1e-4)
	}

	kind, err = refit.Update(snap)
	require.NoError(t, err)
	assert.Equal(t, UpdateNone, kind)
}

func TestTLASCountChangeRebuilds(t *testing.T) {
	store, id, table := newCubeScene(t)
	_, err := table.AddInstance(id)
	require.NoError(t, err)
	set := NewBLASSet()
	mesh, _ := store.Get(id)
	require.NoError(t, set.EnsureBuilt(mesh))
	tlas := NewTLAS(set)
	_, err = tlas.Update(table.Snapshot())
	require.NoError(t, err)

	_, err = table.AddInstance(id, scene.WithTransform(mgl32.Translate3D(5, 0, 0)))
	require.NoError(t, err)
	kind, err := tlas.Update(table.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, UpdateRebuilt, kind)
	rebuilds, refits := tlas.Counters()
	assert.Equal(t, 2, rebuilds)
	assert.Equal(t, 0, refits)
}

func TestTLASZeroInstances(t *testing.T) {
	_, _, table := newCubeScene(t)
	res := &countingResidency{}
	tlas := NewTLAS(NewBLASSet(), WithTLASResidency(res))
	kind, err := tlas.Update(table.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, UpdateCleared, kind)
	assert.True(t, tlas.Empty())
	assert.Equal(t, 1, res.tlas, "cleared structure is still made resident")

	_, ok := tlas.Intersect(NewRay(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}), 0, 1e9)
	assert.False(t, ok)
}

func TestTLASMissingBLAS(t *testing.T) {
	_, id, table := newCubeScene(t)
	_, err := table.AddInstance(id)
	require.NoError(t, err)
	_, err = NewTLAS(NewBLASSet()).Update(table.Snapshot())
	assert.ErrorIs(t, err, rterr.ErrNotBuilt)
}

func TestTLASMaxInstances(t *testing.T) {
	store, id, table := newCubeScene(t)
	for i := 0; i < 3; i++ {
		_, err := table.AddInstance(id)
		require.NoError(t, err)
	}
	set := NewBLASSet()
	mesh, _ := store.Get(id)
	require.NoError(t, set.EnsureBuilt(mesh))
	_, err := NewTLAS(set, WithMaxInstances(2)).Update(table.Snapshot())
	assert.ErrorIs(t, err, rterr.ErrResourceExhausted)
}

func TestOccluded(t *testing.T) {
	store, id, table := newCubeScene(t)
	_, err := table.AddInstance(id)
	require.NoError(t, err)
	set := NewBLASSet()
	mesh, _ := store.Get(id)
	require.NoError(t, set.EnsureBuilt(mesh))
	tlas := NewTLAS(set)
	_, err = tlas.Update(table.Snapshot())
	require.NoError(t, err)

	assert.True(t, tlas.Occluded(NewRay(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}), 1e-4, 10))
	assert.False(t, tlas.Occluded(NewRay(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}), 1e-4, 2))
	assert.False(t, tlas.Occluded(NewRay(mgl32.Vec3{5, 5, 5}, mgl32.Vec3{0, 0, -1}), 1e-4, 100))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Rebuild")
	require.NoError(t, err)
	assert.Equal(t, PolicyRebuild, p)
	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyRefit, p)
	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}

package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) (*InstanceTable, geometry.MeshID) {
	t.Helper()
	store := geometry.NewStore()
	mesh, err := store.AddPrimitive(geometry.PrimitiveCube, geometry.DefaultMaterial(), mgl32.Ident4())
	require.NoError(t, err)
	return NewInstanceTable(store), mesh
}

func TestAddInstanceBumpsGenerationOnce(t *testing.T) {
	table, mesh := newTestTable(t)
	assert.Equal(t, uint64(0), table.Generation())

	id, err := table.AddInstance(mesh)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), table.Generation())

	inst, ok := table.Get(id)
	require.True(t, ok)
	assert.Equal(t, mgl32.Ident4(), inst.World)
	assert.Equal(t, mgl32.Ident3(), inst.Normal)
	assert.Equal(t, NoMaterialOverride, inst.MaterialOverride)

	_, err = table.AddInstance(geometry.MeshID(42))
	assert.Error(t, err)
	assert.Equal(t, uint64(1), table.Generation())
}

func TestUpdateTransformsGenerationMonotonic(t *testing.T) {
	table, mesh := newTestTable(t)
	ids := make([]InstanceID, 5)
	for i := range ids {
		var err error
		ids[i], err = table.AddInstance(mesh)
		require.NoError(t, err)
	}
	start := table.Generation()

	changed, err := table.UpdateTransforms(func(tx *TransformTx) error {
		for i, id := range ids {
			if err := tx.Set(id, mgl32.Translate3D(float32(i), 0, 0)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, start+1, table.Generation(), "one bump regardless of how many instances moved")

	// identical transforms are not a change
	changed, err = table.UpdateTransforms(func(tx *TransformTx) error {
		for i, id := range ids {
			if err := tx.Set(id, mgl32.Translate3D(float32(i), 0, 0)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, start+1, table.Generation())

	_, err = table.UpdateTransforms(func(tx *TransformTx) error {
		return tx.Set(InstanceID(999), mgl32.Ident4())
	})
	assert.Error(t, err)
	assert.Equal(t, start+1, table.Generation())
}

func TestRemoveInstanceKeepsOrder(t *testing.T) {
	table, mesh := newTestTable(t)
	var ids []InstanceID
	for i := 0; i < 4; i++ {
		id, err := table.AddInstance(mesh, WithTransform(mgl32.Translate3D(float32(i), 0, 0)))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	gen := table.Generation()

	require.NoError(t, table.RemoveInstance(ids[1]))
	assert.Equal(t, gen+1, table.Generation())
	assert.Error(t, table.RemoveInstance(ids[1]))

	snap := table.Snapshot()
	require.Len(t, snap.Instances, 3)
	assert.Equal(t, []InstanceID{ids[0], ids[2], ids[3]},
		[]InstanceID{snap.Instances[0].ID, snap.Instances[1].ID, snap.Instances[2].ID})

	_, ok := table.Get(ids[3])
	assert.True(t, ok)
}

func TestSnapshotIsolation(t *testing.T) {
	table, mesh := newTestTable(t)
	id, err := table.AddInstance(mesh)
	require.NoError(t, err)

	snap := table.Snapshot()
	_, err = table.UpdateTransforms(func(tx *TransformTx) error {
		return tx.Set(id, mgl32.Translate3D(5, 0, 0))
	})
	require.NoError(t, err)

	assert.Equal(t, mgl32.Ident4(), snap.Instances[0].World)
	assert.Less(t, snap.Generation, table.Generation())
	assert.Equal(t, []geometry.MeshID{mesh}, snap.MeshesInUse())
}

package animator

import (
	"context"
	"math/rand"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildScene loads one mesh, adds five animated instances and binds seeded orbit tracks.
func buildScene(t *testing.T, seed int64) (*scene.InstanceTable, Driver, []scene.InstanceID) {
	t.Helper()
	store := geometry.NewStore()
	mesh, err := store.AddPrimitive(geometry.PrimitiveCube, geometry.DefaultMaterial(), mgl32.Ident4())
	require.NoError(t, err)

	table := scene.NewInstanceTable(store)
	d := NewDriver(table)
	rng := rand.New(rand.NewSource(seed))
	var ids []scene.InstanceID
	for i := 0; i < 5; i++ {
		id, err := table.AddInstance(mesh, scene.WithAnimated(true))
		require.NoError(t, err)
		track := Composite{Tracks: []Track{
			Spin{Axis: mgl32.Vec3{0, 1, 0}, Speed: 1.5},
			Orbit{Radius: 2, Speed: 0.7, Phase: rng.Float32() * 6.28},
		}}
		require.NoError(t, d.Bind(id, mgl32.Scale3D(0.5, 0.5, 0.5), track))
		ids = append(ids, id)
	}
	return table, d, ids
}

func transforms(table *scene.InstanceTable) []mgl32.Mat4 {
	snap := table.Snapshot()
	out := make([]mgl32.Mat4, len(snap.Instances))
	for i, inst := range snap.Instances {
		out[i] = inst.World
	}
	return out
}

func TestAdvanceDeterministicReplay(t *testing.T) {
	run := func() []mgl32.Mat4 {
		table, d, _ := buildScene(t, 42)
		for _, at := range []float64{0, 1.0} {
			_, err := d.Advance(at)
			require.NoError(t, err)
		}
		return transforms(table)
	}
	assert.Equal(t, run(), run())
}

func TestAdvanceIsAbsoluteTime(t *testing.T) {
	stepped, ds, _ := buildScene(t, 7)
	for i := 1; i <= 100; i++ {
		_, err := ds.Advance(float64(i) / 100)
		require.NoError(t, err)
	}
	direct, dd, _ := buildScene(t, 7)
	_, err := dd.Advance(1.0)
	require.NoError(t, err)

	a, b := transforms(stepped), transforms(direct)
	require.Len(t, a, 5)
	for i := range a {
		assert.Equal(t, b[i], a[i])
	}
}

func TestAdvanceBumpsGenerationOnce(t *testing.T) {
	table, d, _ := buildScene(t, 1)
	before := table.Generation()

	changed, err := d.Advance(0.5)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, before+1, table.Generation())

	// replaying the same time changes nothing
	changed, err = d.Advance(0.5)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before+1, table.Generation())
	assert.Equal(t, 0.5, d.LastTime())
}

func TestDisabledDriverLeavesTable(t *testing.T) {
	table, d, _ := buildScene(t, 1)
	d.SetEnabled(false)
	before := table.Generation()
	changed, err := d.Advance(3)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, table.Generation())
	assert.False(t, d.Enabled())
}

func TestUnbindAndRemovedInstances(t *testing.T) {
	table, d, ids := buildScene(t, 3)
	d.Unbind(ids[0])
	require.NoError(t, table.RemoveInstance(ids[1]))
	assert.Equal(t, 4, d.Bound())

	_, err := d.Advance(2)
	require.NoError(t, err)
	inst, ok := table.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, mgl32.Ident4(), inst.World)

	assert.Error(t, d.Bind(ids[1], mgl32.Ident4(), Static{}))
}

func TestTracks(t *testing.T) {
	base := mgl32.Ident4()
	o := Orbit{Radius: 2, Speed: 0}
	p := o.Transform(base, 10).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 2, p.X(), 1e-5)
	assert.InDelta(t, 0, p.Z(), 1e-5)

	b := Bob{Amplitude: 1, Frequency: 0.25}
	p = b.Transform(base, 1).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 1, p.Y(), 1e-5)

	assert.Equal(t, base, Static{}.Transform(base, 5))
	assert.Equal(t, base, Composite{}.Transform(base, 5))
}

func TestFromConfigOrbitStartsAtPlacement(t *testing.T) {
	world := mgl32.Translate3D(2, 0.5, 0)
	base, track := FromConfig(config.Track{Kinds: []string{config.TrackOrbit}, Speed: 1}, world, 0)
	got := track.Transform(base, 0).Col(3).Vec3()
	assert.InDelta(t, 2, got[0], 1e-5)
	assert.InDelta(t, 0.5, got[1], 1e-5)
	assert.InDelta(t, 0, got[2], 1e-5)

	later := track.Transform(base, 1).Col(3).Vec3()
	assert.InDelta(t, 2, mgl32.Vec2{later[0], later[2]}.Len(), 1e-4)
	assert.NotEqual(t, got, later)
}

func TestFromConfigStaticAndSeeded(t *testing.T) {
	world := mgl32.Translate3D(1, 2, 3)
	base, track := FromConfig(config.Track{}, world, 0)
	assert.Equal(t, world, base)
	assert.IsType(t, Static{}, track)

	tc := config.Track{Kinds: []string{config.TrackSpin, config.TrackBob}, Seed: 3}
	_, a := FromConfig(tc, world, 1)
	_, b := FromConfig(tc, world, 1)
	assert.Equal(t, a.Transform(world, 0.3), b.Transform(world, 0.3))
	_, c := FromConfig(tc, world, 2)
	assert.NotEqual(t, a.Transform(world, 0.3), c.Transform(world, 0.3))
}

func TestBindPlacementsFromDefaultScene(t *testing.T) {
	asm, err := scene.Build(context.Background(), config.Default().Scene)
	require.NoError(t, err)
	d := NewDriver(asm.Table)
	n, err := BindPlacements(d, asm.Placements)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 6, d.Bound())

	gen := asm.Table.Generation()
	changed, err := d.Advance(0.5)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, gen+1, asm.Table.Generation())
}

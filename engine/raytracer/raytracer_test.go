package raytracer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/accel"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 16

type recordingBackend struct {
	counters []uint32
}

func (r *recordingBackend) Trace(_ *accel.TLAS, _ *ShaderBindingTable, pc PushConstants, frame Frame, acc *accumulator.Accumulator) error {
	r.counters = append(r.counters, pc.FrameCounter)
	return acc.Accumulate(make([]float32, frame.Width*frame.Height*4))
}

func (r *recordingBackend) Release() {}

type fixture struct {
	table *scene.InstanceTable
	ids   []scene.InstanceID
	blas  *accel.BLASSet
	tlas  *accel.TLAS
	sbt   *ShaderBindingTable
	cam   camera.Camera
}

func newFixture(t *testing.T, instances int) *fixture {
	t.Helper()
	store := geometry.NewStore()
	id, err := store.AddPrimitive(geometry.PrimitiveCube, geometry.DefaultMaterial(), mgl32.Ident4())
	require.NoError(t, err)
	table := scene.NewInstanceTable(store)
	var ids []scene.InstanceID
	for range instances {
		iid, err := table.AddInstance(id)
		require.NoError(t, err)
		ids = append(ids, iid)
	}
	mesh, ok := store.Get(id)
	require.True(t, ok)

	f := &fixture{
		table: table,
		ids:   ids,
		blas:  accel.NewBLASSet(),
		sbt:   NewShaderBindingTable(nil),
		cam:   camera.NewCamera(camera.WithPose(mgl32.Vec3{0, 0, 4}, mgl32.Vec3{})),
	}
	if instances > 0 {
		require.NoError(t, f.blas.EnsureBuilt(mesh))
	}
	f.tlas = accel.NewTLAS(f.blas)
	_, err = f.tlas.Update(table.Snapshot())
	require.NoError(t, err)
	require.NoError(t, f.sbt.Build())
	return f
}

func (f *fixture) frame() Frame {
	return Frame{
		InverseViewProjection: f.cam.InverseViewProjection(),
		Eye:                   f.cam.Eye(),
		Width:                 testSize,
		Height:                testSize,
		Generation:            f.table.Generation(),
	}
}

func newAcc(t *testing.T, options ...accumulator.AccumulatorBuilderOption) *accumulator.Accumulator {
	t.Helper()
	acc, err := accumulator.New(testSize, testSize, options...)
	require.NoError(t, err)
	return acc
}

func TestDispatchStaleTLAS(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.table.UpdateTransforms(func(tx *scene.TransformTx) error {
		return tx.Set(f.ids[0], mgl32.Translate3D(1, 0, 0))
	})
	require.NoError(t, err)

	p := NewPath(&recordingBackend{}, newAcc(t))
	ok, err := p.Dispatch(f.tlas, f.sbt, PushConstants{}, f.frame())
	assert.False(t, ok)
	var stale *rterr.StaleAccelerationStructureError
	require.True(t, errors.As(err, &stale))
	assert.Less(t, stale.TLASGeneration, stale.TableGeneration)

	_, err = f.tlas.Update(f.table.Snapshot())
	require.NoError(t, err)
	ok, err = p.Dispatch(f.tlas, f.sbt, PushConstants{}, f.frame())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDispatchSBTNotBuilt(t *testing.T) {
	f := newFixture(t, 1)
	p := NewPath(&recordingBackend{}, newAcc(t))
	_, err := p.Dispatch(f.tlas, NewShaderBindingTable(nil), PushConstants{}, f.frame())
	assert.ErrorIs(t, err, rterr.ErrNotBuilt)
}

func TestDispatchFrameCounterAndCap(t *testing.T) {
	f := newFixture(t, 1)
	rec := &recordingBackend{}
	acc := newAcc(t, accumulator.WithMaxSamples(3))
	p := NewPath(rec, acc)

	for range 5 {
		_, err := p.Dispatch(f.tlas, f.sbt, PushConstants{FrameCounter: 99}, f.frame())
		require.NoError(t, err)
	}
	assert.Equal(t, []uint32{0, 1, 2}, rec.counters, "dispatches past the cap are skipped")
	assert.Equal(t, uint32(3), acc.SampleCount())
}

func TestDispatchSizeMismatch(t *testing.T) {
	f := newFixture(t, 1)
	acc, err := accumulator.New(8, 8)
	require.NoError(t, err)
	_, err = NewPath(&recordingBackend{}, acc).Dispatch(f.tlas, f.sbt, PushConstants{}, f.frame())
	require.ErrorIs(t, err, rterr.ErrTargetSize)
	assert.False(t, rterr.IsFatal(err, rterr.PhaseFrame, false))
}

func TestDispatchUnbuiltTLAS(t *testing.T) {
	f := newFixture(t, 1)
	_, err := NewPath(&recordingBackend{}, newAcc(t)).Dispatch(accel.NewTLAS(f.blas), f.sbt, PushConstants{}, f.frame())
	assert.ErrorIs(t, err, rterr.ErrNotBuilt)
}

func TestZeroInstancesSkipDispatch(t *testing.T) {
	f := newFixture(t, 0)
	require.True(t, f.tlas.Empty())
	assert.Zero(t, f.blas.Len(), "no bottom-level structure for an empty table")

	rec := &recordingBackend{}
	acc := newAcc(t)
	p := NewPath(rec, acc)
	for range 3 {
		ok, err := p.Dispatch(f.tlas, f.sbt, PushConstants{}, f.frame())
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Empty(t, rec.counters)
	assert.Zero(t, acc.SampleCount())
}

func TestSoftwareHitsCube(t *testing.T) {
	f := newFixture(t, 1)
	v := params.DefaultValues()
	v.ClearColor = [4]float32{0, 0, 0, 0}
	acc := newAcc(t)
	p := NewPath(NewSoftwareBackend(), acc)
	_, err := p.Dispatch(f.tlas, f.sbt, NewPushConstants(v), f.frame())
	require.NoError(t, err)

	out := make([]float32, testSize*testSize*4)
	require.NoError(t, acc.Average(out))
	center := (testSize/2*testSize + testSize/2) * 4
	assert.Equal(t, float32(1), out[center+3], "center pixel covered by the cube")
	assert.Equal(t, float32(0), out[3], "corner pixel misses")
}

func TestSoftwareDeterministic(t *testing.T) {
	f := newFixture(t, 1)
	v := params.DefaultValues()
	v.PathTracing = true
	render := func() []float32 {
		acc := newAcc(t)
		p := NewPath(NewSoftwareBackend(WithTraceWorkers(3)), acc)
		for range 3 {
			_, err := p.Dispatch(f.tlas, f.sbt, NewPushConstants(v), f.frame())
			require.NoError(t, err)
		}
		out := make([]float32, testSize*testSize*4)
		require.NoError(t, acc.Average(out))
		return out
	}
	assert.Equal(t, render(), render())
}

func TestShaderBindingTable(t *testing.T) {
	sbt := NewShaderBindingTable(nil)
	_, err := sbt.Record(GroupHit, 0)
	assert.ErrorIs(t, err, rterr.ErrNotBuilt)
	_, err = sbt.Bytes()
	assert.ErrorIs(t, err, rterr.ErrNotBuilt)

	require.NoError(t, sbt.Build())
	assert.Equal(t, RecordAlignment, sbt.Stride())
	data, err := sbt.Bytes()
	require.NoError(t, err)
	assert.Len(t, data, 6*sbt.Stride())
	assert.Equal(t, 1, sbt.Version())

	rec, err := sbt.Record(GroupMiss, MissShadow)
	require.NoError(t, err)
	assert.Equal(t, ShaderMissShadow, rec.Shader)

	mirror := geometry.DefaultMaterial()
	mirror.Illum = 3
	emissive := geometry.DefaultMaterial()
	emissive.Emission = mgl32.Vec3{1, 1, 1}
	plain := geometry.DefaultMaterial()
	assert.Equal(t, 0, sbt.HitGroupFor(&plain))
	assert.Equal(t, 1, sbt.HitGroupFor(&emissive))
	assert.Equal(t, 2, sbt.HitGroupFor(&mirror))

	rebuilt, err := sbt.Rebuild(DefaultHitGroups())
	require.NoError(t, err)
	assert.False(t, rebuilt)
	rebuilt, err = sbt.Rebuild([]ShaderID{ShaderHitPhong})
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Equal(t, 2, sbt.Version())
	assert.Equal(t, 0, sbt.HitGroupFor(&mirror))

	_, err = sbt.Rebuild([]ShaderID{ShaderRayGen})
	assert.Error(t, err)
}

func TestPushConstantsLayout(t *testing.T) {
	v := params.DefaultValues()
	v.PathTracing = true
	pc := NewPushConstants(v)
	assert.Len(t, pc.Bytes(), 48)
	assert.Equal(t, uint32(1), pc.PathTracing)
	assert.Equal(t, v.Light, pc.Light())
}

func TestShaderMatchesHostLayout(t *testing.T) {
	src, err := shaderSource()
	require.NoError(t, err)
	assert.Contains(t, src, "@group(1) @binding(4) var<storage, read> materials: array<Material>;")
	assert.NotContains(t, src, "@oxy:")
}

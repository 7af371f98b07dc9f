package raster

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 32

type countingBackend struct {
	begins, draws, ends int
}

func (c *countingBackend) Begin(Frame) error   { c.begins++; return nil }
func (c *countingBackend) Draw(DrawCall) error { c.draws++; return nil }
func (c *countingBackend) End() error          { c.ends++; return nil }
func (c *countingBackend) Release()            {}

func flat(color mgl32.Vec3) geometry.Material {
	m := geometry.DefaultMaterial()
	m.Diffuse, m.Specular, m.Ambient = mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{}
	m.Illum = 0
	m.Emission = color
	return m
}

func testFrame() Frame {
	cam := camera.NewCamera(camera.WithPose(mgl32.Vec3{0, 0, 4}, mgl32.Vec3{}))
	return Frame{
		ViewProjection: cam.ViewProjection(),
		Eye:            cam.Eye(),
		Width:          size,
		Height:         size,
		Light:          params.DefaultValues().Light,
		ClearColor:     common.RGBA{0.1, 0.2, 0.3, 1},
	}
}

func TestDrawOnePerInstance(t *testing.T) {
	store := geometry.NewStore()
	id, err := store.AddPrimitive(geometry.PrimitiveCube, geometry.DefaultMaterial(), mgl32.Ident4())
	require.NoError(t, err)
	table := scene.NewInstanceTable(store)
	for range 3 {
		_, err := table.AddInstance(id)
		require.NoError(t, err)
	}

	backend := &countingBackend{}
	draws, err := NewPath(backend).Draw(table.Snapshot(), store, testFrame())
	require.NoError(t, err)
	assert.Equal(t, 3, draws)
	assert.Equal(t, countingBackend{begins: 1, draws: 3, ends: 1}, *backend)
}

func TestDrawUnknownMesh(t *testing.T) {
	snap := scene.Snapshot{Instances: []scene.Instance{{Mesh: 42, World: mgl32.Ident4()}}}
	_, err := NewPath(&countingBackend{}).Draw(snap, geometry.NewStore(), testFrame())
	assert.ErrorIs(t, err, rterr.ErrNotBuilt)
}

func TestSoftwareZeroInstancesClears(t *testing.T) {
	b := NewSoftwareBackend(WithTransformWorkers(2))
	frame := testFrame()
	_, err := NewPath(b).Draw(scene.Snapshot{}, geometry.NewStore(), frame)
	require.NoError(t, err)
	img := b.Image()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			require.Equal(t, frame.ClearColor, img.At(x, y))
		}
	}
}

func TestSoftwareDepthOrder(t *testing.T) {
	store := geometry.NewStore()
	red, err := store.AddPrimitive(geometry.PrimitiveCube, flat(mgl32.Vec3{1, 0, 0}), mgl32.Ident4())
	require.NoError(t, err)
	green, err := store.AddPrimitive(geometry.PrimitiveCube, flat(mgl32.Vec3{0, 1, 0}), mgl32.Ident4())
	require.NoError(t, err)
	table := scene.NewInstanceTable(store)
	// The far cube is added last so the z-buffer, not draw order, decides.
	_, err = table.AddInstance(red, scene.WithTransform(mgl32.Translate3D(0, 0, 1)))
	require.NoError(t, err)
	_, err = table.AddInstance(green, scene.WithTransform(mgl32.Translate3D(0, 0, -1)))
	require.NoError(t, err)

	b := NewSoftwareBackend()
	frame := testFrame()
	_, err = NewPath(b).Draw(table.Snapshot(), store, frame)
	require.NoError(t, err)

	img := b.Image()
	assert.Equal(t, common.RGBA{1, 0, 0, 1}, img.At(size/2, size/2), "nearer cube wins")
	assert.Equal(t, frame.ClearColor, img.At(0, 0))
}

func TestSoftwareCullsBehindCamera(t *testing.T) {
	store := geometry.NewStore()
	id, err := store.AddPrimitive(geometry.PrimitiveCube, flat(mgl32.Vec3{1, 1, 1}), mgl32.Ident4())
	require.NoError(t, err)
	table := scene.NewInstanceTable(store)
	_, err = table.AddInstance(id, scene.WithTransform(mgl32.Translate3D(0, 0, 10)))
	require.NoError(t, err)

	b := NewSoftwareBackend()
	frame := testFrame()
	_, err = NewPath(b).Draw(table.Snapshot(), store, frame)
	require.NoError(t, err)
	assert.Equal(t, frame.ClearColor, b.Image().At(size/2, size/2))
}

func TestClipNear(t *testing.T) {
	in := []clipVertex{
		{clip: mgl32.Vec4{0, 0, 1, 1}},
		{clip: mgl32.Vec4{1, 0, -1, 1}},
		{clip: mgl32.Vec4{0, 1, -1, 1}},
	}
	out := clipNear(in)
	require.Len(t, out, 3)
	for _, v := range out {
		assert.GreaterOrEqual(t, v.clip.Z(), float32(0))
	}

	in[1].clip[2], in[2].clip[2] = 1, 1
	assert.Len(t, clipNear(in), 3)

	in[0].clip[2] = -1
	in[1].clip[2] = -1
	in[2].clip[2] = -1
	assert.Empty(t, clipNear(in))
}

func TestShaderMatchesHostLayout(t *testing.T) {
	src, err := shaderSource()
	require.NoError(t, err)
	assert.Contains(t, src, "var<storage, read> materials: array<Material>;")
	assert.NotContains(t, src, "@oxy:")
}

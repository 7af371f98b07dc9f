package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerDefaultPose(t *testing.T) {
	cc := NewCameraController()
	assert.True(t, cc.Position().ApproxEqualThreshold(mgl32.Vec3{4, 4, 4}, 1e-4))
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, cc.Target())

	cc.SetEye(mgl32.Vec3{0, 1, 10})
	assert.InDelta(t, 10, cc.Radius(), 1e-4)
	assert.InDelta(t, 0, cc.Azimuth(), 1e-5)
	assert.InDelta(t, 0, cc.Elevation(), 1e-5)
}

func TestControllerZoomClamped(t *testing.T) {
	cc := NewCameraController(WithRadiusBounds(1, 5))
	cc.Zoom(1000)
	assert.Equal(t, float32(1), cc.Radius())
	cc.Zoom(-1000)
	assert.Equal(t, float32(5), cc.Radius())
}

func TestControllerZUp(t *testing.T) {
	cc := NewCameraController(WithUpAxis(mgl32.Vec3{0, 0, 1}), WithEyeTarget(mgl32.Vec3{5, 0, 5}, mgl32.Vec3{}))
	assert.True(t, cc.Position().ApproxEqualThreshold(mgl32.Vec3{5, 0, 5}, 1e-4))
	assert.InDelta(t, math.Pi/4, cc.Elevation(), 1e-5)
	assert.InDelta(t, 0, cc.Azimuth(), 1e-5)

	z := cc.Position().Z()
	cc.Drag(0, 20)
	assert.Greater(t, cc.Position().Z(), z)
	assert.InDelta(t, 5*math.Sqrt2, cc.Radius(), 1e-4)
}

func TestPanKeepsOrbit(t *testing.T) {
	cc := NewCameraController()
	before := cc.Position().Sub(cc.Target())
	cc.PanRight(3)
	cc.PanForward(2)
	after := cc.Position().Sub(cc.Target())
	assert.True(t, before.ApproxEqualThreshold(after, 1e-4))
}

func TestPrimaryRayCenterHitsTarget(t *testing.T) {
	cam := NewCamera(WithController(NewCameraController()), WithAspect(1))
	origin, dir := cam.PrimaryRay(50, 50, 100, 100)
	assert.Equal(t, cam.Eye(), origin)

	toTarget := mgl32.Vec3{0, 1, 0}.Sub(origin).Normalize()
	assert.InDelta(t, 1, dir.Normalize().Dot(toTarget), 1e-4)
}

func TestPrimaryRayMatchesProjection(t *testing.T) {
	cam := NewCamera(WithPose(mgl32.Vec3{0, 2, 6}, mgl32.Vec3{0, 0, 0}), WithAspect(1.5))
	w, h := 300, 200
	p := mgl32.Vec3{0.7, 0.3, -0.4}

	clip := cam.ViewProjection().Mul4x1(p.Vec4(1))
	ndc := clip.Vec3().Mul(1 / clip.W())
	px := (ndc.X() + 1) * 0.5 * float32(w)
	py := (1 - ndc.Y()) * 0.5 * float32(h)

	origin, dir := cam.PrimaryRay(px, py, w, h)
	toP := p.Sub(origin).Normalize()
	assert.InDelta(t, 1, dir.Normalize().Dot(toP), 1e-5)
}

func TestStateComparable(t *testing.T) {
	cc := NewCameraController()
	cam := NewCamera(WithController(cc))
	s1 := cam.State()
	cam.Update()
	require.Equal(t, s1, cam.State())

	cc.Drag(40, 0)
	cam.Update()
	assert.NotEqual(t, s1, cam.State())

	s2 := cam.State()
	cam.SetAspect(2)
	assert.NotEqual(t, s2, cam.State())
}

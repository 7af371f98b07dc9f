package shading

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSampleLight(t *testing.T) {
	point := params.LightState{Position: mgl32.Vec3{0, 2, 0}, Intensity: 8, Type: params.LightPoint}
	ls := SampleLight(point, mgl32.Vec3{})
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, ls.Dir)
	assert.InDelta(t, 2, ls.Distance, 1e-6)
	assert.InDelta(t, 2, ls.Intensity, 1e-6)

	inf := params.LightState{Position: mgl32.Vec3{0, 0, 5}, Intensity: 3, Type: params.LightInfinite}
	ls = SampleLight(inf, mgl32.Vec3{100, 100, 100})
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, ls.Dir)
	assert.True(t, math32.IsInf(ls.Distance, 1))
	assert.Equal(t, float32(3), ls.Intensity)
}

func TestDirectShadowKeepsAttenuatedDiffuse(t *testing.T) {
	m := geometry.DefaultMaterial()
	m.Illum = 2
	n := mgl32.Vec3{0, 1, 0}
	ls := LightSample{Dir: n, Distance: 1, Intensity: 1}

	lit := Direct(&m, n, n, ls, false)
	shadowed := Direct(&m, n, n, ls, true)
	diffuse := Diffuse(&m, n, n)
	assert.InDelta(t, diffuse.X()*ShadowAttenuation, shadowed.X(), 1e-5)
	assert.Greater(t, lit.X(), shadowed.X())
}

func TestFaceForwardAndReflect(t *testing.T) {
	n := mgl32.Vec3{0, 0, 1}
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, FaceForward(n, mgl32.Vec3{0, 0, 1}))
	assert.Equal(t, n, FaceForward(n, mgl32.Vec3{0, 0, -1}))
	assert.Equal(t, mgl32.Vec3{1, 0, 1}, Reflect(mgl32.Vec3{1, 0, -1}, n))
}

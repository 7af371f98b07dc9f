// Package shading holds the lighting model shared by the ray-tracing and raster paths,
// so both modes agree on direct lighting and differ only in visibility.
package shading

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowAttenuation scales the direct light reaching an occluded point.
const ShadowAttenuation float32 = 0.3

// LightSample is the light as seen from one surface point.
type LightSample struct {
	// Dir points from the surface towards the light, normalized.
	Dir mgl32.Vec3
	// Distance is the distance to a point light, or +Inf for an infinite light.
	Distance  float32
	Intensity float32
}

// SampleLight evaluates the light at p. Point lights fall off with the squared distance.
func SampleLight(l params.LightState, p mgl32.Vec3) LightSample {
	if l.Type == params.LightInfinite {
		dir := l.Position
		if dir.Len() == 0 {
			dir = mgl32.Vec3{0, 1, 0}
		}
		return LightSample{Dir: dir.Normalize(), Distance: math32.Inf(1), Intensity: l.Intensity}
	}
	d := l.Position.Sub(p)
	dist := d.Len()
	if dist < 1e-6 {
		return LightSample{Dir: mgl32.Vec3{0, 1, 0}, Distance: 0, Intensity: 0}
	}
	return LightSample{Dir: d.Mul(1 / dist), Distance: dist, Intensity: l.Intensity / (dist * dist)}
}

// Diffuse returns the Lambert term, plus the ambient color for illumination models above 0.
func Diffuse(m *geometry.Material, n, l mgl32.Vec3) mgl32.Vec3 {
	dotNL := max(n.Dot(l), 0)
	c := m.Diffuse.Mul(dotNL)
	if m.Illum >= 1 {
		c = c.Add(m.Ambient)
	}
	return c
}

// Specular returns the energy-conserving Phong lobe for illumination models 2 and above.
// v points from the surface towards the viewer.
func Specular(m *geometry.Material, v, l, n mgl32.Vec3) mgl32.Vec3 {
	if m.Illum < 2 {
		return mgl32.Vec3{}
	}
	shininess := max(m.Shininess, 4)
	energy := (2 + shininess) / (2 * math32.Pi)
	r := Reflect(l.Mul(-1), n)
	s := energy * math32.Pow(max(v.Dot(r), 0), shininess)
	return m.Specular.Mul(s)
}

// Direct combines diffuse and specular under one light sample. Shadowed points keep the
// attenuated diffuse term and lose the highlight.
func Direct(m *geometry.Material, n, v mgl32.Vec3, ls LightSample, shadowed bool) mgl32.Vec3 {
	diffuse := Diffuse(m, n, ls.Dir)
	var spec mgl32.Vec3
	attenuation := float32(1)
	if shadowed {
		attenuation = ShadowAttenuation
	} else {
		spec = Specular(m, v, ls.Dir, n)
	}
	return diffuse.Add(spec).Mul(ls.Intensity * attenuation).Add(m.Emission)
}

// Reflect mirrors d about n.
func Reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

// FaceForward flips n to lie in the hemisphere opposite the incoming direction.
func FaceForward(n, incoming mgl32.Vec3) mgl32.Vec3 {
	if n.Dot(incoming) > 0 {
		return n.Mul(-1)
	}
	return n
}

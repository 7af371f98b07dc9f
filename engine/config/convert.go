package config

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/go-gl/mathgl/mgl32"
)

// ParseMode maps "raster" or "raytrace" to a render mode.
func ParseMode(s string) (params.RenderMode, error) {
	switch strings.ToLower(s) {
	case "", "raster":
		return params.ModeRaster, nil
	case "raytrace", "rt":
		return params.ModeRayTrace, nil
	}
	return params.ModeRaster, fmt.Errorf("unknown render mode %q", s)
}

// ParseLightType maps "point" or "infinite" to a light type.
func ParseLightType(s string) (params.LightType, error) {
	switch strings.ToLower(s) {
	case "", "point":
		return params.LightPoint, nil
	case "infinite", "directional":
		return params.LightInfinite, nil
	}
	return params.LightPoint, fmt.Errorf("unknown light type %q", s)
}

// ParseUp maps an axis name to the camera up vector.
func ParseUp(s string) (mgl32.Vec3, error) {
	switch strings.ToLower(s) {
	case "x":
		return mgl32.Vec3{1, 0, 0}, nil
	case "", "y":
		return mgl32.Vec3{0, 1, 0}, nil
	case "z":
		return mgl32.Vec3{0, 0, 1}, nil
	}
	return mgl32.Vec3{0, 1, 0}, fmt.Errorf("unknown up axis %q", s)
}

// Params returns the startup render params. c must be valid.
func (c *Config) Params() params.Values {
	v := params.DefaultValues()
	mode, _ := ParseMode(c.Renderer.Mode)
	lt, _ := ParseLightType(c.Light.Type)
	v.Light = params.LightState{Position: c.Light.Position, Intensity: c.Light.Intensity, Type: lt}
	v.Mode = mode
	v.PathTracing = c.Renderer.PathTracing
	v.ClearColor = common.RGBA(c.Renderer.ClearColor)
	v.Animate = c.Renderer.Animate
	v.MaxBounces = max(c.Renderer.MaxBounces, 1)
	v.Exposure = c.Renderer.Exposure
	return v
}

// BaseTransform returns translate * rotateZ * rotateY * rotateX * scale.
func (m Mesh) BaseTransform() mgl32.Mat4 {
	t := mgl32.Translate3D(m.Translate[0], m.Translate[1], m.Translate[2])
	r := mgl32.HomogRotate3DZ(mgl32.DegToRad(m.Rotate[2])).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(m.Rotate[1]))).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(m.Rotate[0])))
	s := mgl32.Scale3D(m.Scale[0], m.Scale[1], m.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// GeometryMaterial returns the mesh material, or the default material when none is configured.
func (m Mesh) GeometryMaterial() geometry.Material {
	mat := geometry.DefaultMaterial()
	if m.Material == nil {
		return mat
	}
	mat.Diffuse = m.Material.Diffuse
	mat.Specular = m.Material.Specular
	mat.Emission = m.Material.Emission
	if m.Material.Shininess > 0 {
		mat.Shininess = m.Material.Shininess
	}
	mat.Illum = m.Material.Illum
	return mat
}

// InstanceCount is the number of instances the mesh places, including the center instance.
func (m Mesh) InstanceCount() int {
	n := m.Instances
	if m.Distribution.Center {
		n++
	}
	return n
}

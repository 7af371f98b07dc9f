// Package material holds the GPU layout of surface materials shared by the raster and
// ray-tracing shaders.
package material

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
)

// GPUMaterialSource is the canonical WGSL definition of the Material struct.
// Matches GPUMaterial layout exactly (64 bytes, std430 aligned).
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// GPUMaterial is one entry of the materials storage buffer.
// Matches the WGSL Material struct layout exactly (see GPUMaterialSource).
type GPUMaterial struct {
	Diffuse   [3]float32 // offset 0
	HitGroup  uint32     // offset 12: SBT hit group index, unused by the raster pass
	Specular  [3]float32 // offset 16
	Shininess float32    // offset 28
	Emission  [3]float32 // offset 32
	Illum     int32      // offset 44
	Ambient   [3]float32 // offset 48
	_         float32    // offset 60
}

// Size returns the size of the GPUMaterial struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Pack converts a host material into its GPU form.
//
// Parameters:
//   - m: the host material
//   - hitGroup: hit group index the closest-hit stage dispatches on
//
// Returns:
//   - GPUMaterial: the packed material
func Pack(m *geometry.Material, hitGroup uint32) GPUMaterial {
	return GPUMaterial{
		Diffuse:   m.Diffuse,
		HitGroup:  hitGroup,
		Specular:  m.Specular,
		Shininess: m.Shininess,
		Emission:  m.Emission,
		Illum:     m.Illum,
		Ambient:   m.Ambient,
	}
}

// PackAll packs mats in order. hitGroup may be nil for passes that ignore hit groups.
func PackAll(mats []geometry.Material, hitGroup func(*geometry.Material) uint32) []GPUMaterial {
	out := make([]GPUMaterial, len(mats))
	for i := range mats {
		var hg uint32
		if hitGroup != nil {
			hg = hitGroup(&mats[i])
		}
		out[i] = Pack(&mats[i], hg)
	}
	return out
}

package raytracer

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
)

// PushConstants is the per-dispatch parameter block read by every ray-generation invocation.
// Layout is std430 (48 bytes); on WebGPU it is uploaded as a uniform buffer.
type PushConstants struct {
	LightPosition  [3]float32 // offset 0
	LightIntensity float32    // offset 12
	ClearColor     [4]float32 // offset 16
	LightType      int32      // offset 32
	FrameCounter   uint32     // offset 36: equals the accumulator sample count at dispatch
	PathTracing    uint32     // offset 40
	MaxBounces     uint32     // offset 44
}

// NewPushConstants fills the block from render parameters. FrameCounter is set by Dispatch.
func NewPushConstants(v params.Values) PushConstants {
	pc := PushConstants{
		LightPosition:  v.Light.Position,
		LightIntensity: v.Light.Intensity,
		ClearColor:     v.ClearColor,
		LightType:      int32(v.Light.Type),
		MaxBounces:     max(v.MaxBounces, 1),
	}
	if v.PathTracing {
		pc.PathTracing = 1
	}
	return pc
}

// Bytes returns the block's memory for upload.
func (pc *PushConstants) Bytes() []byte {
	return common.StructToBytes(pc)
}

// Light converts the block back to a light state.
func (pc *PushConstants) Light() params.LightState {
	return params.LightState{
		Position:  pc.LightPosition,
		Intensity: pc.LightIntensity,
		Type:      params.LightType(pc.LightType),
	}
}

// Package raytracer dispatches ray generation over the acceleration structures and
// accumulates the result. Two backends exist: a compute-shader traversal on WebGPU and
// a CPU traversal used headless and in tests.
package raytracer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/accel"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("raytracer")

// Frame is the per-dispatch view: camera matrices, image size, and the instance-table
// generation the frame was prepared against.
type Frame struct {
	InverseViewProjection mgl32.Mat4
	Eye                   mgl32.Vec3
	Width                 int
	Height                int
	Generation            uint64
}

// Backend traces one sample per pixel and adds it to the accumulator.
type Backend interface {
	Trace(tlas *accel.TLAS, sbt *ShaderBindingTable, pc PushConstants, frame Frame, acc *accumulator.Accumulator) error
	Release()
}

// Path owns a backend and the accumulator it feeds.
type Path struct {
	backend Backend
	acc     *accumulator.Accumulator
	traced  int
}

// NewPath pairs a backend with an accumulator.
func NewPath(backend Backend, acc *accumulator.Accumulator) *Path {
	return &Path{backend: backend, acc: acc}
}

// Dispatch traces one frame. An empty TLAS is not traced: the frame is skipped and the
// accumulator keeps no samples, so the compositor shows the background.
//
// Parameters:
//   - tlas: the top-level structure; its generation must not be behind frame.Generation
//   - sbt: the built shader binding table
//   - pc: parameter block; FrameCounter is overwritten with the accumulator's sample count
//   - frame: camera and image size
//
// Returns:
//   - bool: false when the dispatch was skipped (empty TLAS or sample cap reached)
//   - error: StaleAccelerationStructureError, NotBuiltError, TargetSizeError, or a backend failure
func (p *Path) Dispatch(tlas *accel.TLAS, sbt *ShaderBindingTable, pc PushConstants, frame Frame) (bool, error) {
	if tlas == nil || !tlas.Built() {
		return false, &rterr.NotBuiltError{Resource: "tlas"}
	}
	if accel.NeedsRebuild(tlas.Generation(), frame.Generation) {
		return false, &rterr.StaleAccelerationStructureError{
			TLASGeneration:  tlas.Generation(),
			TableGeneration: frame.Generation,
		}
	}
	if sbt == nil || !sbt.Built() {
		return false, &rterr.NotBuiltError{Resource: "shader binding table"}
	}
	if w, h := p.acc.Size(); w != frame.Width || h != frame.Height {
		return false, fmt.Errorf("dispatch: %w", &rterr.TargetSizeError{
			Target: "accumulator", Width: frame.Width, Height: frame.Height, Have: [2]int{w, h},
		})
	}
	if tlas.Empty() || p.acc.Skip() {
		return false, nil
	}

	pc.FrameCounter = p.acc.SampleCount()
	if err := p.backend.Trace(tlas, sbt, pc, frame, p.acc); err != nil {
		return false, fmt.Errorf("trace frame %d: %w", pc.FrameCounter, err)
	}
	p.traced++
	if p.traced == 1 {
		logger.Debugf("first ray-traced frame dispatched at %dx%d", frame.Width, frame.Height)
	}
	return true, nil
}

// Accumulator returns the accumulator the path writes into.
func (p *Path) Accumulator() *accumulator.Accumulator {
	return p.acc
}

// Backend returns the path's backend.
func (p *Path) Backend() Backend {
	return p.backend
}

// Release releases the backend. The accumulator is released by its owner.
func (p *Path) Release() {
	if p.backend != nil {
		p.backend.Release()
	}
}

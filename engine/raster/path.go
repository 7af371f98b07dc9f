// Package raster draws the instance table with a depth-tested triangle pipeline.
// Pixel coverage is sampled at pixel centers, the same convention the ray generator uses,
// so silhouettes agree between modes.
package raster

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("raster")

// MeshSource resolves mesh ids. *geometry.Store satisfies it.
type MeshSource interface {
	Get(id geometry.MeshID) (*geometry.Mesh, bool)
}

// Frame is the per-frame view and lighting state.
type Frame struct {
	ViewProjection mgl32.Mat4
	Eye            mgl32.Vec3
	Width          int
	Height         int
	Light          params.LightState
	ClearColor     common.RGBA
}

// DrawCall is one instance drawn with its mesh.
type DrawCall struct {
	// Index is the instance's position in the snapshot.
	Index    int
	Instance scene.Instance
	Mesh     *geometry.Mesh
}

// Backend records draws between Begin and End. Begin clears color and depth.
type Backend interface {
	Begin(frame Frame) error
	Draw(call DrawCall) error
	End() error
	Release()
}

// Path issues one draw per instance.
type Path struct {
	backend Backend
}

// NewPath wraps a backend.
func NewPath(backend Backend) *Path {
	return &Path{backend: backend}
}

// Draw renders snap. With no instances the target is only cleared.
//
// Parameters:
//   - snap: instance snapshot to draw
//   - meshes: mesh lookup for the snapshot's mesh ids
//   - frame: camera, light and clear state
//
// Returns:
//   - int: number of draws issued
//   - error: NotBuiltError for an unknown mesh, or a backend failure
func (p *Path) Draw(snap scene.Snapshot, meshes MeshSource, frame Frame) (int, error) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return 0, fmt.Errorf("raster: invalid frame size %dx%d", frame.Width, frame.Height)
	}
	if err := p.backend.Begin(frame); err != nil {
		return 0, fmt.Errorf("begin raster frame: %w", err)
	}
	draws := 0
	for i, inst := range snap.Instances {
		mesh, ok := meshes.Get(inst.Mesh)
		if !ok {
			p.backend.End()
			return draws, &rterr.NotBuiltError{Resource: "mesh", Key: fmt.Sprint(inst.Mesh)}
		}
		if err := p.backend.Draw(DrawCall{Index: i, Instance: inst, Mesh: mesh}); err != nil {
			p.backend.End()
			return draws, fmt.Errorf("draw instance %d: %w", inst.ID, err)
		}
		draws++
	}
	if err := p.backend.End(); err != nil {
		return draws, fmt.Errorf("end raster frame: %w", err)
	}
	logger.Debugf("raster frame: %d draws", draws)
	return draws, nil
}

// Backend returns the path's backend.
func (p *Path) Backend() Backend {
	return p.backend
}

// Release releases the backend.
func (p *Path) Release() {
	if p.backend != nil {
		p.backend.Release()
	}
}

// materialOf resolves the material of triangle prim, honoring the instance override.
func materialOf(inst *scene.Instance, mesh *geometry.Mesh, prim int) geometry.Material {
	if o := inst.MaterialOverride; o != scene.NoMaterialOverride && int(o) < len(mesh.Materials) {
		return mesh.Materials[o]
	}
	return mesh.MaterialOf(prim)
}

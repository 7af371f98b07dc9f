package params

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderMode selects which path produces the frame.
type RenderMode int

const (
	ModeRaster RenderMode = iota
	ModeRayTrace
)

func (m RenderMode) String() string {
	if m == ModeRayTrace {
		return "raytrace"
	}
	return "raster"
}

// LightType selects how the light position is interpreted.
type LightType int32

const (
	// LightPoint is a point light at Position.
	LightPoint LightType = iota
	// LightInfinite is a directional light shining from Position towards the origin.
	LightInfinite
)

func (l LightType) String() string {
	if l == LightInfinite {
		return "infinite"
	}
	return "point"
}

// LightState is the comparable part of the params that affects lighting.
type LightState struct {
	Position  mgl32.Vec3
	Intensity float32
	Type      LightType
}

// Values is a value copy of every render parameter.
type Values struct {
	Light       LightState
	Mode        RenderMode
	PathTracing bool
	ClearColor  common.RGBA
	Animate     bool
	MaxBounces  uint32
	Exposure    float32
}

// DefaultValues is the viewer's startup state: point light at (10, 15, 8), intensity 100, raster mode.
func DefaultValues() Values {
	return Values{
		Light: LightState{
			Position:  mgl32.Vec3{10, 15, 8},
			Intensity: 100,
			Type:      LightPoint,
		},
		Mode:       ModeRaster,
		ClearColor: common.RGBA{1, 1, 1, 1},
		Animate:    true,
		MaxBounces: 4,
		Exposure:   1,
	}
}

// RenderParams is the single owner of the UI-editable render state.
// Every setter that changes a value marks the params dirty; the frame loop consumes the flag
// with TakeDirty and forces an accumulator reset.
type RenderParams struct {
	mu    sync.Mutex
	v     Values
	dirty bool
}

// New creates render params with the given initial values.
//
// Parameters:
//   - v: initial values, usually DefaultValues() overlaid with configuration
//
// Returns:
//   - *RenderParams: the params, not dirty
func New(v Values) *RenderParams {
	return &RenderParams{v: v}
}

// set applies fn under the lock and marks dirty when the values changed.
func (p *RenderParams) set(fn func(v *Values)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	before := p.v
	fn(&p.v)
	if p.v != before {
		p.dirty = true
		return true
	}
	return false
}

// SetLightPosition moves the light.
func (p *RenderParams) SetLightPosition(pos mgl32.Vec3) bool {
	return p.set(func(v *Values) { v.Light.Position = pos })
}

// SetLightIntensity sets the light intensity, clamped at zero.
func (p *RenderParams) SetLightIntensity(i float32) bool {
	return p.set(func(v *Values) { v.Light.Intensity = max(i, 0) })
}

// SetLightType switches between point and infinite light.
func (p *RenderParams) SetLightType(t LightType) bool {
	return p.set(func(v *Values) { v.Light.Type = t })
}

// SetMode selects raster or ray tracing.
func (p *RenderParams) SetMode(m RenderMode) bool {
	return p.set(func(v *Values) { v.Mode = m })
}

// SetPathTracing toggles indirect bounces in the ray-tracing path.
func (p *RenderParams) SetPathTracing(on bool) bool {
	return p.set(func(v *Values) { v.PathTracing = on })
}

// SetClearColor sets the background color.
func (p *RenderParams) SetClearColor(c common.RGBA) bool {
	return p.set(func(v *Values) { v.ClearColor = c })
}

// SetAnimate turns instance animation on or off.
func (p *RenderParams) SetAnimate(on bool) bool {
	return p.set(func(v *Values) { v.Animate = on })
}

// SetMaxBounces sets the path-tracing bounce limit (at least 1).
func (p *RenderParams) SetMaxBounces(n uint32) bool {
	return p.set(func(v *Values) { v.MaxBounces = max(n, 1) })
}

// SetExposure sets the tone-mapping exposure.
func (p *RenderParams) SetExposure(e float32) bool {
	return p.set(func(v *Values) { v.Exposure = max(e, 0) })
}

// Snapshot returns a value copy of the current parameters.
func (p *RenderParams) Snapshot() Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.v
}

// TakeDirty reports whether anything changed since the last call and clears the flag.
func (p *RenderParams) TakeDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := p.dirty
	p.dirty = false
	return d
}

// MarkDirty forces the next TakeDirty to report true.
func (p *RenderParams) MarkDirty() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dirty = true
}

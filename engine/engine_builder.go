package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables the periodic frame statistics log and the shutdown summary.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets the window the engine presents to and reads input from.
// Required for the wgpu backend.
//
// Parameters:
//   - w: an open Window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithBackend overrides the configured backend.
//
// Parameters:
//   - b: the backend to render with
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(b renderer.BackendType) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithScene uses an already assembled scene instead of building the configured one.
//
// Parameters:
//   - asm: the scene
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(asm *scene.Assembly) EngineBuilderOption {
	return func(e *engine) {
		e.scene = asm
	}
}

// WithConfigDir resolves relative mesh paths of the configured scene against dir.
func WithConfigDir(dir string) EngineBuilderOption {
	return func(e *engine) {
		e.cfgDir = dir
	}
}

// WithSize overrides the configured render size.
func WithSize(width, height int) EngineBuilderOption {
	return func(e *engine) {
		e.width, e.height = width, height
	}
}

// WithProgressOverlay draws a sample-count progress bar over ray-traced frames when no other
// overlay is set.
func WithProgressOverlay(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.progress = enabled
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithReleaseObserver is called with each resource name as Shutdown releases it.
func WithReleaseObserver(fn func(resource string)) EngineBuilderOption {
	return func(e *engine) {
		e.releaseObserver = fn
	}
}

package renderer

import "github.com/cogentcore/webgpu/wgpu"

// GPUBuilderOption is a functional option applied to the GPU context during NewGPU.
type GPUBuilderOption func(*gpuImpl)

// WithForceFallbackAdapter requests the software (fallback) WebGPU adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - GPUBuilderOption: a function that applies the option
func WithForceFallbackAdapter(force bool) GPUBuilderOption {
	return func(g *gpuImpl) {
		g.forceFallbackAdapter = force
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - GPUBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) GPUBuilderOption {
	return func(g *gpuImpl) {
		switch mode {
		case PresentModeUncapped:
			g.presentMode = wgpu.PresentModeImmediate
		default:
			g.presentMode = wgpu.PresentModeFifo
		}
	}
}

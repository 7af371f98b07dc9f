package renderer

import "fmt"

// BackendType identifies which implementation renders frames.
type BackendType int

const (
	// BackendWGPU renders on the GPU through WebGPU compute and render pipelines.
	BackendWGPU BackendType = iota

	// BackendSoftware renders on the CPU worker pool. Used headless and in tests.
	BackendSoftware
)

// ParseBackend maps "wgpu" or "software" to a BackendType.
func ParseBackend(s string) (BackendType, error) {
	switch s {
	case "", "wgpu":
		return BackendWGPU, nil
	case "software", "cpu":
		return BackendSoftware, nil
	}
	return BackendWGPU, fmt.Errorf("unknown backend %q", s)
}

func (b BackendType) String() string {
	if b == BackendSoftware {
		return "software"
	}
	return "wgpu"
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

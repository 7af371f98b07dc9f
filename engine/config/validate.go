package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

// Validate checks every field and returns all problems joined, each naming its field.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		add("window", "size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := renderer.ParseBackend(c.Renderer.Backend); err != nil {
		add("renderer.backend", "%v", err)
	}
	if _, err := ParseMode(c.Renderer.Mode); err != nil {
		add("renderer.mode", "%v", err)
	}
	switch strings.ToLower(c.Renderer.TLASPolicy) {
	case "", "refit", "rebuild":
	default:
		add("renderer.tlas_policy", "unknown tlas policy %q", c.Renderer.TLASPolicy)
	}
	if c.Renderer.MaxFramesInFlight < 1 {
		add("renderer.max_frames_in_flight", "must be at least 1, got %d", c.Renderer.MaxFramesInFlight)
	}
	if c.Renderer.MaxSamples < 1 {
		add("renderer.max_samples", "must be at least 1")
	}
	if c.Renderer.Exposure <= 0 {
		add("renderer.exposure", "must be positive, got %g", c.Renderer.Exposure)
	}
	if _, err := ParseLightType(c.Light.Type); err != nil {
		add("light.type", "%v", err)
	}
	if c.Light.Intensity < 0 {
		add("light.intensity", "must not be negative")
	}
	if _, err := ParseUp(c.Camera.Up); err != nil {
		add("camera.up", "%v", err)
	}
	if c.Camera.Fov <= 0 || c.Camera.Fov >= 180 {
		add("camera.fov", "must be in (0, 180) degrees, got %g", c.Camera.Fov)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		add("camera", "need 0 < near < far, got near %g far %g", c.Camera.Near, c.Camera.Far)
	}
	if c.Camera.Eye == c.Camera.Target {
		add("camera.eye", "must differ from target")
	}

	for i, m := range c.Scene.Meshes {
		field := fmt.Sprintf("scene.meshes[%d]", i)
		if (m.Path == "") == (m.Primitive == "") {
			add(field, "exactly one of path and primitive must be set")
		}
		switch m.Primitive {
		case "", geometry.PrimitivePlane, geometry.PrimitiveCube, geometry.PrimitiveSphere:
		default:
			add(field+".primitive", "unknown primitive %q", m.Primitive)
		}
		if m.Instances < 0 {
			add(field+".instances", "must not be negative")
		}
		if m.Scale[0] == 0 || m.Scale[1] == 0 || m.Scale[2] == 0 {
			add(field+".scale", "components must be non-zero")
		}
		switch m.Distribution.Kind {
		case DistributionSingle, DistributionGrid, DistributionRing, DistributionRandom, DistributionNormal:
		default:
			add(field+".distribution.kind", "unknown distribution %q", m.Distribution.Kind)
		}
		if r := m.Distribution.ScaleRange; r != ([2]float32{}) && (r[0] <= 0 || r[1] < r[0]) {
			add(field+".distribution.scale_range", "need 0 < min <= max, got %v", r)
		}
		for _, k := range m.Track.Kinds {
			switch strings.ToLower(k) {
			case TrackNone, TrackOrbit, TrackSpin, TrackBob:
			default:
				add(field+".track.kinds", "unknown track %q", k)
			}
		}
	}
	return errors.Join(errs...)
}

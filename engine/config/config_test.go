package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[window]
width = 320
height = 200

[renderer]
backend = "software"
mode = "raytrace"
max_samples = 16
tlas_policy = "rebuild"

[[scene.meshes]]
primitive = "cube"
instances = 9
[scene.meshes.distribution]
kind = "grid"
spacing = 2.0
`

const sampleYAML = `
window:
  width: 320
  height: 200
renderer:
  backend: software
light:
  type: infinite
scene:
  meshes:
    - primitive: sphere
      instances: 4
      distribution:
        kind: random
        seed: 7
        extent: [3, 1, 3]
      track:
        kinds: [bob]
`

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Len(t, c.Scene.Meshes, 3)
	assert.Equal(t, [3]float32{2, 1, 2}, c.Scene.Meshes[0].Scale)
	assert.Equal(t, 6, c.Scene.Meshes[1].InstanceCount())
	assert.Equal(t, 2, c.Renderer.MaxFramesInFlight)
	assert.Equal(t, uint32(4096), c.Renderer.MaxSamples)
}

func TestDecodeTOMLKeepsDefaults(t *testing.T) {
	c, err := Decode([]byte(sampleTOML), ".toml")
	require.NoError(t, err)
	assert.Equal(t, 320, c.Window.Width)
	assert.Equal(t, "oxy-rt", c.Window.Title)
	assert.Equal(t, "rebuild", c.Renderer.TLASPolicy)
	assert.Equal(t, 2, c.Renderer.MaxFramesInFlight)
	require.Len(t, c.Scene.Meshes, 1)
	m := c.Scene.Meshes[0]
	assert.Equal(t, "cube", m.Name)
	assert.Equal(t, [3]float32{1, 1, 1}, m.Scale)
	assert.Equal(t, DistributionGrid, m.Distribution.Kind)

	v := c.Params()
	assert.Equal(t, params.ModeRayTrace, v.Mode)
}

func TestDecodeYAML(t *testing.T) {
	c, err := Decode([]byte(sampleYAML), ".yml")
	require.NoError(t, err)
	require.Len(t, c.Scene.Meshes, 1)
	m := c.Scene.Meshes[0]
	assert.Equal(t, int64(7), m.Distribution.Seed)
	assert.True(t, m.Track.Animated())
	assert.Equal(t, params.LightInfinite, c.Params().Light.Type)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
		want string
	}{
		{"format", "a = 1", ".ini", "unsupported config format"},
		{"syntax", "[window", ".toml", "failed to decode"},
		{"backend", "[renderer]\nbackend = \"vulkan\"", ".toml", "renderer.backend"},
		{"policy", "[renderer]\ntlas_policy = \"sometimes\"", ".toml", "renderer.tlas_policy"},
		{"source", "[[scene.meshes]]\nname = \"x\"", ".toml", "exactly one of path and primitive"},
		{"distribution", "[[scene.meshes]]\nprimitive = \"cube\"\n[scene.meshes.distribution]\nkind = \"spiral\"", ".toml", "distribution.kind"},
		{"track", "[[scene.meshes]]\nprimitive = \"cube\"\n[scene.meshes.track]\nkinds = [\"wobble\"]", ".toml", "track.kinds"},
		{"size", "window:\n  width: 0", ".yaml", "window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.ext)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadAndEncodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	data, err := Encode(Default(), ".toml")
	require.NoError(t, err)
	path := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Scene.Meshes[1].Track, c.Scene.Meshes[1].Track)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestBaseTransform(t *testing.T) {
	m := Mesh{Translate: [3]float32{1, 2, 3}, Rotate: [3]float32{0, 90, 0}, Scale: [3]float32{2, 2, 2}}
	p := m.BaseTransform().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 2, p[1], 1e-5)
	assert.InDelta(t, 1, p[2], 1e-5)

	up, err := ParseUp("Z")
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, up)
}

func TestExampleScenesLoad(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "*.toml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			cfg, err := Load(path)
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Scene.Meshes)
			assert.NotEmpty(t, cfg.Scene.Name)
		})
	}
}

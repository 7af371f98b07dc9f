// Package config describes a renderer run: window, renderer options, light, camera and the scene
// to assemble. Configurations are read from TOML or YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var logger = log.New("config")

// Config is the root of a configuration file.
type Config struct {
	Window   Window   `toml:"window" yaml:"window"`
	Renderer Renderer `toml:"renderer" yaml:"renderer"`
	Light    Light    `toml:"light" yaml:"light"`
	Camera   Camera   `toml:"camera" yaml:"camera"`
	Scene    Scene    `toml:"scene" yaml:"scene"`
}

// Window sizes the viewer window and the headless render target.
type Window struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

// Renderer holds the render loop options.
type Renderer struct {
	// Backend is "wgpu" or "software".
	Backend string `toml:"backend" yaml:"backend"`
	// Mode is the startup render mode, "raster" or "raytrace".
	Mode              string     `toml:"mode" yaml:"mode"`
	PathTracing       bool       `toml:"path_tracing" yaml:"path_tracing"`
	MaxFramesInFlight int        `toml:"max_frames_in_flight" yaml:"max_frames_in_flight"`
	MaxSamples        uint32     `toml:"max_samples" yaml:"max_samples"`
	MaxBounces        uint32     `toml:"max_bounces" yaml:"max_bounces"`
	TLASPolicy        string     `toml:"tlas_policy" yaml:"tlas_policy"`
	Exposure          float32    `toml:"exposure" yaml:"exposure"`
	ClearColor        [4]float32 `toml:"clear_color" yaml:"clear_color"`
	Animate           bool       `toml:"animate" yaml:"animate"`
	Debug             bool       `toml:"debug" yaml:"debug"`
	// Workers sizes the CPU worker pools; 0 picks runtime.NumCPU().
	Workers int `toml:"workers" yaml:"workers"`
}

// Light is the startup light.
type Light struct {
	Position  [3]float32 `toml:"position" yaml:"position"`
	Intensity float32    `toml:"intensity" yaml:"intensity"`
	// Type is "point" or "infinite".
	Type string `toml:"type" yaml:"type"`
}

// Camera is the startup camera pose and projection.
type Camera struct {
	Eye    [3]float32 `toml:"eye" yaml:"eye"`
	Target [3]float32 `toml:"target" yaml:"target"`
	// Up is "x", "y" or "z".
	Up   string  `toml:"up" yaml:"up"`
	Fov  float32 `toml:"fov" yaml:"fov"`
	Near float32 `toml:"near" yaml:"near"`
	Far  float32 `toml:"far" yaml:"far"`
}

// Scene lists the meshes to load and how to instance them.
type Scene struct {
	Name   string `toml:"name" yaml:"name"`
	Meshes []Mesh `toml:"meshes" yaml:"meshes"`
}

// Mesh is one geometry source plus the instances placed from it.
// Exactly one of Path and Primitive is set.
type Mesh struct {
	Name      string `toml:"name" yaml:"name"`
	Path      string `toml:"path" yaml:"path"`
	Primitive string `toml:"primitive" yaml:"primitive"`
	// Material applies to primitives and to OBJ triangles without a material.
	Material *Material `toml:"material" yaml:"material"`
	// Translate, Rotate (degrees, applied X then Y then Z) and Scale are baked into the vertices.
	Translate    [3]float32   `toml:"translate" yaml:"translate"`
	Rotate       [3]float32   `toml:"rotate" yaml:"rotate"`
	Scale        [3]float32   `toml:"scale" yaml:"scale"`
	Instances    int          `toml:"instances" yaml:"instances"`
	Distribution Distribution `toml:"distribution" yaml:"distribution"`
	Track        Track        `toml:"track" yaml:"track"`
}

// Material overrides the default material of a mesh.
type Material struct {
	Diffuse   [3]float32 `toml:"diffuse" yaml:"diffuse"`
	Specular  [3]float32 `toml:"specular" yaml:"specular"`
	Emission  [3]float32 `toml:"emission" yaml:"emission"`
	Shininess float32    `toml:"shininess" yaml:"shininess"`
	// Illum follows the MTL illumination model; 3 makes a mirror.
	Illum int32 `toml:"illum" yaml:"illum"`
}

// Distribution kinds.
const (
	DistributionSingle = "single"
	DistributionGrid   = "grid"
	DistributionRing   = "ring"
	DistributionRandom = "random"
	DistributionNormal = "normal"
)

// Distribution places the instances of a mesh.
type Distribution struct {
	Kind string `toml:"kind" yaml:"kind"`
	// Spacing is the grid cell size.
	Spacing float32 `toml:"spacing" yaml:"spacing"`
	// Radius is the ring radius.
	Radius float32 `toml:"radius" yaml:"radius"`
	// Extent is the half size of the random box, and Sigma the normal standard deviation.
	Extent [3]float32 `toml:"extent" yaml:"extent"`
	Sigma  float32    `toml:"sigma" yaml:"sigma"`
	// Center adds one extra instance at the origin that is never animated.
	Center bool `toml:"center" yaml:"center"`
	// RandomRotation and ScaleRange randomize orientation and uniform scale.
	RandomRotation bool       `toml:"random_rotation" yaml:"random_rotation"`
	ScaleRange     [2]float32 `toml:"scale_range" yaml:"scale_range"`
	Seed           int64      `toml:"seed" yaml:"seed"`
}

// Track kinds.
const (
	TrackNone  = "none"
	TrackOrbit = "orbit"
	TrackSpin  = "spin"
	TrackBob   = "bob"
)

// Track animates the placed instances. Phases are derived from Seed.
type Track struct {
	Kinds     []string   `toml:"kinds" yaml:"kinds"`
	Speed     float32    `toml:"speed" yaml:"speed"`
	Height    float32    `toml:"height" yaml:"height"`
	Axis      [3]float32 `toml:"axis" yaml:"axis"`
	Amplitude float32    `toml:"amplitude" yaml:"amplitude"`
	Frequency float32    `toml:"frequency" yaml:"frequency"`
	Seed      int64      `toml:"seed" yaml:"seed"`
}

// Animated reports whether the track moves anything.
func (t Track) Animated() bool {
	for _, k := range t.Kinds {
		if k != TrackNone && k != "" {
			return true
		}
	}
	return false
}

// Load reads a configuration file. The decoder is chosen by extension: .toml, .yaml or .yml.
// Fields missing from the file keep their Default() values, except the scene which the file
// describes completely.
//
// Parameters:
//   - path: the configuration file
//
// Returns:
//   - *Config: the validated configuration
//   - error: if the file cannot be read, decoded or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Infof("loaded config %s (%d meshes)", path, len(c.Scene.Meshes))
	return c, nil
}

// Decode parses configuration data in the format named by ext (".toml", ".yaml" or ".yml").
func Decode(data []byte, ext string) (*Config, error) {
	c := Default()
	c.Scene = Scene{}
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	c.applyMeshDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode writes c in the format named by ext.
func Encode(c *Config, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		return toml.Marshal(c)
	case ".yaml", ".yml":
		return yaml.Marshal(c)
	}
	return nil, fmt.Errorf("unsupported config format %q", ext)
}

func (c *Config) applyMeshDefaults() {
	for i := range c.Scene.Meshes {
		m := &c.Scene.Meshes[i]
		if m.Scale == ([3]float32{}) {
			m.Scale = [3]float32{1, 1, 1}
		}
		if m.Instances == 0 && !m.Distribution.Center {
			m.Instances = 1
		}
		if m.Distribution.Kind == "" {
			m.Distribution.Kind = DistributionSingle
		}
		if m.Name == "" {
			if m.Path != "" {
				m.Name = strings.TrimSuffix(filepath.Base(m.Path), filepath.Ext(m.Path))
			} else {
				m.Name = m.Primitive
			}
		}
	}
}

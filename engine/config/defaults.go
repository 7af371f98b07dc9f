package config

// Default returns the built-in configuration: a ground plane scaled (2, 1, 2), a subject mesh with
// one centered instance plus five orbiting it, and a sphere, lit by a point light.
func Default() *Config {
	c := &Config{
		Window: Window{Title: "oxy-rt", Width: 1280, Height: 720},
		Renderer: Renderer{
			Backend:           "wgpu",
			Mode:              "raster",
			MaxFramesInFlight: 2,
			MaxSamples:        4096,
			MaxBounces:        4,
			TLASPolicy:        "refit",
			Exposure:          1,
			ClearColor:        [4]float32{1, 1, 1, 1},
			Animate:           true,
		},
		Light: Light{Position: [3]float32{10, 15, 8}, Intensity: 100, Type: "point"},
		Camera: Camera{
			Eye:    [3]float32{4, 4, 4},
			Target: [3]float32{0, 1, 0},
			Up:     "y",
			Fov:    45,
			Near:   0.1,
			Far:    100,
		},
		Scene: Scene{
			Name: "default",
			Meshes: []Mesh{
				{
					Name:      "ground",
					Primitive: "plane",
					Scale:     [3]float32{2, 1, 2},
					Material:  &Material{Diffuse: [3]float32{0.6, 0.6, 0.6}, Specular: [3]float32{0.1, 0.1, 0.1}, Shininess: 8},
					Instances: 1,
					Distribution: Distribution{
						Kind: DistributionSingle,
					},
				},
				{
					Name:      "subject",
					Primitive: "cube",
					Translate: [3]float32{0, 0.5, 0},
					Scale:     [3]float32{0.5, 0.5, 0.5},
					Material:  &Material{Diffuse: [3]float32{0.8, 0.3, 0.2}, Specular: [3]float32{0.5, 0.5, 0.5}, Shininess: 32},
					Instances: 5,
					Distribution: Distribution{
						Kind:   DistributionRing,
						Radius: 1.5,
						Center: true,
					},
					Track: Track{Kinds: []string{TrackOrbit, TrackSpin}, Speed: 0.5, Axis: [3]float32{0, 1, 0}, Seed: 1},
				},
				{
					Name:      "sphere",
					Primitive: "sphere",
					Translate: [3]float32{0, 2.2, 0},
					Scale:     [3]float32{0.6, 0.6, 0.6},
					Material:  &Material{Diffuse: [3]float32{0.9, 0.9, 0.9}, Specular: [3]float32{0.9, 0.9, 0.9}, Shininess: 64, Illum: 3},
					Instances: 1,
					Distribution: Distribution{
						Kind: DistributionSingle,
					},
					Track: Track{Kinds: []string{TrackBob}, Amplitude: 0.2, Frequency: 0.25},
				},
			},
		},
	}
	return c
}

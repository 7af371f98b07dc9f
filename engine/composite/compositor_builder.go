package composite

// CompositorBuilderOption configures a Compositor.
type CompositorBuilderOption func(c *Compositor)

// WithExposure sets the initial exposure.
func WithExposure(exposure float32) CompositorBuilderOption {
	return func(c *Compositor) {
		if exposure > 0 {
			c.exposure = exposure
		}
	}
}

// WithGamma sets the display gamma.
func WithGamma(gamma float32) CompositorBuilderOption {
	return func(c *Compositor) {
		if gamma > 0 {
			c.gamma = gamma
		}
	}
}

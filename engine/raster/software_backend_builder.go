package raster

// SoftwareBackendBuilderOption configures a SoftwareBackend.
type SoftwareBackendBuilderOption func(b *SoftwareBackend)

// WithTransformWorkers sets the number of pool workers running the vertex stage.
func WithTransformWorkers(n int) SoftwareBackendBuilderOption {
	return func(b *SoftwareBackend) {
		if n > 0 {
			b.workers = n
		}
	}
}

package raytracer

// SoftwareBackendBuilderOption configures a SoftwareBackend.
type SoftwareBackendBuilderOption func(b *SoftwareBackend)

// WithTraceWorkers sets the number of pool workers tracing row bands.
func WithTraceWorkers(n int) SoftwareBackendBuilderOption {
	return func(b *SoftwareBackend) {
		if n > 0 {
			b.workers = n
		}
	}
}

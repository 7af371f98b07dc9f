package accel

// TLASBuilderOption is a functional option for configuring a TLAS.
type TLASBuilderOption func(t *TLAS)

// WithPolicy sets the transform-update policy.
func WithPolicy(p UpdatePolicy) TLASBuilderOption {
	return func(t *TLAS) {
		t.policy = p
	}
}

// WithMaxInstances caps the instance count; larger snapshots fail with a resource exhaustion error.
// Zero means unlimited.
func WithMaxInstances(n int) TLASBuilderOption {
	return func(t *TLAS) {
		t.maxInstances = n
	}
}

// WithTLASResidency uploads the structure through r after every rebuild or refit.
func WithTLASResidency(r Residency) TLASBuilderOption {
	return func(t *TLAS) {
		t.residency = r
	}
}

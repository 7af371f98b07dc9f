package accel

// BLASSetBuilderOption is a functional option for configuring a BLASSet.
type BLASSetBuilderOption func(s *BLASSet)

// WithBLASResidency uploads every built BLAS through r.
func WithBLASResidency(r Residency) BLASSetBuilderOption {
	return func(s *BLASSet) {
		s.residency = r
	}
}

// WithLeafSize sets the maximum triangles per BVH leaf.
func WithLeafSize(n int) BLASSetBuilderOption {
	return func(s *BLASSet) {
		if n > 0 {
			s.leafSize = n
		}
	}
}

// WithBuildFlags sets the flags recorded on every BLAS.
func WithBuildFlags(f BuildFlags) BLASSetBuilderOption {
	return func(s *BLASSet) {
		s.flags = f
	}
}

// WithBuildWorkers sets the number of goroutines EnsureAll builds on (minimum 1).
func WithBuildWorkers(n int) BLASSetBuilderOption {
	return func(s *BLASSet) {
		s.workers = max(n, 1)
	}
}

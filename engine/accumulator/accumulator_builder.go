package accumulator

// AccumulatorBuilderOption is a functional option for configuring an Accumulator.
type AccumulatorBuilderOption func(a *Accumulator)

// WithMaxSamples sets the sample cap (at least 1).
func WithMaxSamples(n uint32) AccumulatorBuilderOption {
	return func(a *Accumulator) {
		a.maxSamples = max(n, 1)
	}
}

// WithMaxPixels sets the largest image Resize accepts.
func WithMaxPixels(n int) AccumulatorBuilderOption {
	return func(a *Accumulator) {
		a.maxPixels = n
	}
}

package profiler

import "time"

// ProfilerBuilderOption configures a Profiler.
type ProfilerBuilderOption func(p *Profiler)

// WithInterval sets how often Tick logs.
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}

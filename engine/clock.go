package engine

import "time"

// animationClock measures wall-clock time since the first frame, excluding the time spent
// paused. Durations are integer nanoseconds, so a replayed sequence of frame times yields
// exactly the same elapsed values.
type animationClock struct {
	start    time.Time
	paused   time.Duration
	pausedAt time.Time
}

// elapsed records the running state at now and returns the unpaused time since the first call.
func (c *animationClock) elapsed(now time.Time, running bool) time.Duration {
	if c.start.IsZero() {
		c.start = now
	}
	switch {
	case !running && c.pausedAt.IsZero():
		c.pausedAt = now
	case running && !c.pausedAt.IsZero():
		c.paused += now.Sub(c.pausedAt)
		c.pausedAt = time.Time{}
	}
	if !c.pausedAt.IsZero() {
		return c.pausedAt.Sub(c.start) - c.paused
	}
	return now.Sub(c.start) - c.paused
}

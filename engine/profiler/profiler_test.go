package profiler

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickInterval(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewProfiler(WithInterval(time.Second), WithClock(func() time.Time { return now }))

	now = now.Add(500 * time.Millisecond)
	assert.False(t, p.Tick(FrameStats{Path: "raster"}))
	now = now.Add(600 * time.Millisecond)
	assert.True(t, p.Tick(FrameStats{Path: "raster"}))
	assert.False(t, p.Tick(FrameStats{Path: "raster"}))
}

func TestTotalsAndSummary(t *testing.T) {
	p := NewProfiler()
	p.Tick(FrameStats{Path: "raytrace", Samples: 1, Reset: true, Rebuilt: true, Duration: 2 * time.Millisecond})
	p.Tick(FrameStats{Path: "raytrace", Samples: 2, Refitted: true, Duration: 4 * time.Millisecond})
	p.Tick(FrameStats{Path: "raster", Dropped: true})

	tot := p.Totals()
	assert.Equal(t, 3, tot.Frames)
	assert.Equal(t, 2, tot.FramesByPath["raytrace"])
	assert.Equal(t, 1, tot.Dropped)
	assert.Equal(t, 1, tot.Resets)
	assert.Equal(t, 1, tot.Rebuilds)
	assert.Equal(t, 1, tot.Refits)
	assert.Equal(t, uint32(2), tot.MaxSamples)
	assert.Equal(t, 4*time.Millisecond, tot.MaxFrame)

	var buf bytes.Buffer
	p.Summary(&buf)
	out := buf.String()
	assert.Contains(t, out, "TLAS rebuilds")
	assert.Contains(t, out, "raytrace")
}

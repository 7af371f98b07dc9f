// Package profiler tracks frame rate, memory and per-frame render statistics.
package profiler

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/olekukonko/tablewriter"
)

var logger = log.New("profiler")

// FrameStats describes one rendered frame.
type FrameStats struct {
	Path     string
	Samples  uint32
	Reset    bool
	Rebuilt  bool
	Refitted bool
	Dropped  bool
	Skipped  bool
	Duration time.Duration
}

// Totals accumulates FrameStats over the profiler's lifetime.
type Totals struct {
	Frames       int
	Dropped      int
	Skipped      int
	Resets       int
	Rebuilds     int
	Refits       int
	MaxSamples   uint32
	FrameTime    time.Duration
	MaxFrame     time.Duration
	FramesByPath map[string]int
}

// Profiler logs frame rate and memory at a fixed interval and keeps totals for a summary.
type Profiler struct {
	mu             sync.Mutex
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastSamples    uint32
	totals         Totals
	now            func() time.Time
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options (interval, clock)
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		totals:         Totals{FramesByPath: make(map[string]int)},
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick records one frame. Logs performance statistics when the update interval has elapsed:
// FPS, sample count, heap usage, allocation rate, GC count and pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats FrameStats) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.record(stats)
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	logger.Infof("FPS: %.2f | %s samples: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, stats.Path, p.lastSamples, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

func (p *Profiler) record(s FrameStats) {
	t := &p.totals
	t.Frames++
	t.FramesByPath[s.Path]++
	t.FrameTime += s.Duration
	t.MaxFrame = max(t.MaxFrame, s.Duration)
	t.MaxSamples = max(t.MaxSamples, s.Samples)
	p.lastSamples = s.Samples
	if s.Dropped {
		t.Dropped++
	}
	if s.Skipped {
		t.Skipped++
	}
	if s.Reset {
		t.Resets++
	}
	if s.Rebuilt {
		t.Rebuilds++
	}
	if s.Refitted {
		t.Refits++
	}
}

// Totals returns a copy of the accumulated statistics.
func (p *Profiler) Totals() Totals {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.totals
	t.FramesByPath = make(map[string]int, len(p.totals.FramesByPath))
	for k, v := range p.totals.FramesByPath {
		t.FramesByPath[k] = v
	}
	return t
}

// Summary renders the totals as a table.
func (p *Profiler) Summary(w io.Writer) {
	t := p.Totals()
	var avg time.Duration
	if t.Frames > 0 {
		avg = t.FrameTime / time.Duration(t.Frames)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Statistic", "Value"})
	table.Append([]string{"Frames", fmt.Sprint(t.Frames)})
	for _, path := range []string{"raster", "raytrace"} {
		if n, ok := t.FramesByPath[path]; ok {
			table.Append([]string{"  " + path, fmt.Sprint(n)})
		}
	}
	table.Append([]string{"Dropped", fmt.Sprint(t.Dropped)})
	table.Append([]string{"Skipped (sample cap)", fmt.Sprint(t.Skipped)})
	table.Append([]string{"Accumulator resets", fmt.Sprint(t.Resets)})
	table.Append([]string{"TLAS rebuilds", fmt.Sprint(t.Rebuilds)})
	table.Append([]string{"TLAS refits", fmt.Sprint(t.Refits)})
	table.Append([]string{"Max samples", fmt.Sprint(t.MaxSamples)})
	table.SetFooter([]string{"Avg / max frame", fmt.Sprintf("%s / %s", avg, t.MaxFrame)})
	table.Render()
}

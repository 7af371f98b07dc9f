package accumulator

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
)

var logger = log.New("accumulator")

// DefaultMaxSamples bounds accumulation so float32 sums keep enough precision for a visible update.
const DefaultMaxSamples = 4096

// DefaultMaxPixels rejects viewports larger than 16k x 16k.
const DefaultMaxPixels = 16384 * 16384

// Signature is everything whose change invalidates accumulated samples. Comparable with ==.
type Signature struct {
	SceneGeneration uint64
	Camera          camera.State
	Light           params.LightState
	Mode            params.RenderMode
	PathTracing     bool
	MaxBounces      uint32
	ClearColor      common.RGBA
	Width           int
	Height          int
}

// Accumulator is the persistent RGBA float image and sample count of the ray-tracing path.
// It is reset only by BeginFrame (on a signature change) or Invalidate, and written only
// through Accumulate or Record.
type Accumulator struct {
	mu         sync.Mutex
	width      int
	height     int
	image      []float32
	count      uint32
	maxSamples uint32
	maxPixels  int
	sig        Signature
	valid      bool
	resets     int
}

// New creates an accumulator sized width x height.
//
// Parameters:
//   - width, height: image size in pixels
//   - options: functional options (sample cap, pixel limit)
//
// Returns:
//   - *Accumulator: the accumulator
//   - error: ResourceExhaustionError when the size exceeds the pixel limit
func New(width, height int, options ...AccumulatorBuilderOption) (*Accumulator, error) {
	a := &Accumulator{
		maxSamples: DefaultMaxSamples,
		maxPixels:  DefaultMaxPixels,
	}
	for _, opt := range options {
		opt(a)
	}
	if err := a.Resize(width, height); err != nil {
		return nil, err
	}
	return a, nil
}

// BeginFrame compares sig to the snapshot taken at the last reset. On mismatch the sample count
// drops to zero and the image is cleared; on match nothing changes.
//
// Parameters:
//   - sig: the signature of the frame about to render
//
// Returns:
//   - bool: true when the accumulator was reset
func (a *Accumulator) BeginFrame(sig Signature) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.valid && sig == a.sig {
		return false
	}
	a.sig = sig
	a.valid = true
	a.reset()
	return true
}

func (a *Accumulator) reset() {
	if a.count > 0 {
		logger.Debugf("accumulation reset after %d samples", a.count)
	}
	a.count = 0
	clear(a.image)
	a.resets++
}

// Skip reports whether the sample cap has been reached and dispatches should be skipped.
func (a *Accumulator) Skip() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count >= a.maxSamples
}

// Accumulate adds one RGBA radiance sample image and increments the sample count.
// At the cap the sample is discarded and the image kept.
//
// Parameters:
//   - sample: width*height*4 floats
//
// Returns:
//   - error: when the sample size does not match the image
func (a *Accumulator) Accumulate(sample []float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(sample) != len(a.image) {
		return fmt.Errorf("accumulate: sample has %d floats, image has %d", len(sample), len(a.image))
	}
	if a.count >= a.maxSamples {
		return nil
	}
	for i, v := range sample {
		a.image[i] += v
	}
	a.count++
	if a.count == a.maxSamples {
		logger.Infof("accumulation reached %d samples, holding image", a.count)
	}
	return nil
}

// Record counts a sample that was accumulated into a GPU-resident image.
func (a *Accumulator) Record() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count < a.maxSamples {
		a.count++
	}
}

// Average writes the running average (sum / count) into dst. With no samples dst is zeroed.
func (a *Accumulator) Average(dst []float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(dst) != len(a.image) {
		return fmt.Errorf("average: destination has %d floats, image has %d", len(dst), len(a.image))
	}
	if a.count == 0 {
		clear(dst)
		return nil
	}
	inv := 1 / float32(a.count)
	for i, v := range a.image {
		dst[i] = v * inv
	}
	return nil
}

// SampleCount returns the number of samples in the running average.
func (a *Accumulator) SampleCount() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// MaxSamples returns the sample cap.
func (a *Accumulator) MaxSamples() uint32 {
	return a.maxSamples
}

// Resets returns how many times the accumulator has been reset.
func (a *Accumulator) Resets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resets
}

// Size returns the image size.
func (a *Accumulator) Size() (width, height int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.width, a.height
}

// Resize reallocates the image when the size changed and invalidates accumulated samples.
// Same-size calls are no-ops.
//
// Parameters:
//   - width, height: new image size
//
// Returns:
//   - error: ResourceExhaustionError when the size is non-positive or exceeds the pixel limit
func (a *Accumulator) Resize(width, height int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if width == a.width && height == a.height && a.image != nil {
		return nil
	}
	pixels := width * height
	if width <= 0 || height <= 0 || pixels > a.maxPixels {
		return &rterr.ResourceExhaustionError{
			Resource:  "accumulation image",
			Requested: uint64(max(pixels, 0)) * 16,
		}
	}
	a.width, a.height = width, height
	a.image = make([]float32, pixels*4)
	a.count = 0
	a.valid = false
	return nil
}

// Invalidate forces the next BeginFrame to reset.
func (a *Accumulator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.valid = false
}

// Release drops the image.
func (a *Accumulator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.image = nil
	a.width, a.height = 0, 0
	a.count = 0
	a.valid = false
}

package animator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var logger = log.New("animator")

// binding ties one instance to its animation track.
type binding struct {
	id    scene.InstanceID
	base  mgl32.Mat4
	track Track
}

// driver is the implementation of the Driver interface.
type driver struct {
	mu       sync.Mutex
	table    *scene.InstanceTable
	bindings map[scene.InstanceID]*binding
	order    []scene.InstanceID
	enabled  bool
	lastTime float64
	advances int
}

// Driver advances animated instance transforms as a function of absolute elapsed time.
//
// The Driver owns no hidden state beyond what was set up at bind time, so calling Advance twice
// with the same elapsed time yields the same transforms. All transform changes of one Advance
// call land in a single Instance Table update, so the table generation moves by at most one.
type Driver interface {
	// Bind attaches a track to an instance. A later Bind for the same instance replaces the track.
	//
	// Parameters:
	//   - id: the instance to animate
	//   - base: the transform the track is applied to
	//   - track: the animation track
	//
	// Returns:
	//   - error: if the instance does not exist in the table
	Bind(id scene.InstanceID, base mgl32.Mat4, track Track) error

	// Unbind detaches the instance's track. The instance keeps its current transform.
	//
	// Parameters:
	//   - id: the instance to stop animating
	Unbind(id scene.InstanceID)

	// Advance computes the transforms at elapsedSeconds since animation start and writes them to the table.
	//
	// Parameters:
	//   - elapsedSeconds: absolute time since the animation started
	//
	// Returns:
	//   - bool: true if any transform changed (the table generation was bumped once)
	//   - error: if the table update failed
	Advance(elapsedSeconds float64) (bool, error)

	// SetEnabled turns animation on or off. A disabled driver leaves the table untouched.
	//
	// Parameters:
	//   - enabled: whether Advance should apply tracks
	SetEnabled(enabled bool)

	// Enabled reports whether Advance applies tracks.
	//
	// Returns:
	//   - bool: the current enabled state
	Enabled() bool

	// Bound returns the number of animated instances.
	//
	// Returns:
	//   - int: the binding count
	Bound() int

	// LastTime returns the elapsed time passed to the most recent effective Advance.
	//
	// Returns:
	//   - float64: seconds
	LastTime() float64
}

var _ Driver = &driver{}

// NewDriver creates a Driver writing into the given instance table.
//
// Parameters:
//   - table: the Instance Table the driver mutates
//   - options: functional options applied after defaults
//
// Returns:
//   - Driver: the new driver, enabled by default
func NewDriver(table *scene.InstanceTable, options ...DriverBuilderOption) Driver {
	d := &driver{
		table:    table,
		bindings: make(map[scene.InstanceID]*binding),
		enabled:  true,
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

func (d *driver) Bind(id scene.InstanceID, base mgl32.Mat4, track Track) error {
	if _, ok := d.table.Get(id); !ok {
		return fmt.Errorf("bind animation: unknown instance %d", id)
	}
	if track == nil {
		track = Static{}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bindings[id]; !ok {
		d.order = append(d.order, id)
		sort.Slice(d.order, func(i, j int) bool { return d.order[i] < d.order[j] })
	}
	d.bindings[id] = &binding{id: id, base: base, track: track}
	return nil
}

func (d *driver) Unbind(id scene.InstanceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bindings[id]; !ok {
		return
	}
	delete(d.bindings, id)
	for i, o := range d.order {
		if o == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *driver) Advance(elapsedSeconds float64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled || len(d.order) == 0 {
		return false, nil
	}

	changed, err := d.table.UpdateTransforms(func(tx *scene.TransformTx) error {
		for _, id := range d.order {
			b := d.bindings[id]
			if _, ok := tx.Get(id); !ok {
				// removed by a scene edit since Bind
				continue
			}
			if err := tx.Set(id, b.track.Transform(b.base, elapsedSeconds)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("advance animation to %.3fs: %w", elapsedSeconds, err)
	}
	d.lastTime = elapsedSeconds
	d.advances++
	if changed && d.advances%600 == 0 {
		logger.Debugf("animation at %.2fs, table generation %d", elapsedSeconds, d.table.Generation())
	}
	return changed, nil
}

func (d *driver) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

func (d *driver) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *driver) Bound() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

func (d *driver) LastTime() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastTime
}

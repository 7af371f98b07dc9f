package params

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSettersMarkDirtyOnlyOnChange(t *testing.T) {
	p := New(DefaultValues())
	assert.False(t, p.TakeDirty())

	assert.False(t, p.SetMode(ModeRaster))
	assert.False(t, p.TakeDirty())

	assert.True(t, p.SetMode(ModeRayTrace))
	assert.True(t, p.TakeDirty())
	assert.False(t, p.TakeDirty())

	p.SetLightPosition(mgl32.Vec3{1, 2, 3})
	p.SetClearColor(common.RGBA{0, 0, 0, 1})
	assert.True(t, p.TakeDirty())

	v := p.Snapshot()
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, v.Light.Position)
	assert.Equal(t, ModeRayTrace, v.Mode)
}

func TestSetterClamps(t *testing.T) {
	p := New(DefaultValues())
	p.SetLightIntensity(-5)
	p.SetMaxBounces(0)
	v := p.Snapshot()
	assert.Equal(t, float32(0), v.Light.Intensity)
	assert.Equal(t, uint32(1), v.MaxBounces)
}

func TestEventQueueOrderAndBatching(t *testing.T) {
	q := NewEventQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(Event{Kind: EventMouseMove})
		}()
	}
	wg.Wait()
	q.Push(Event{Kind: EventKey, Key: 1})
	q.Push(Event{Kind: EventKey, Key: 2})

	var keys []int
	n := q.Drain(func(e Event) {
		if e.Kind == EventKey {
			keys = append(keys, e.Key)
			// pushed during drain: delivered next frame
			q.Push(Event{Kind: EventClose})
		}
	})
	assert.Equal(t, 10, n)
	assert.Equal(t, []int{1, 2}, keys)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Drain(func(Event) {}))
	assert.Equal(t, 0, q.Len())
}

func TestKeyBindingsToggle(t *testing.T) {
	p := New(DefaultValues())
	b := DefaultBindings()

	assert.Equal(t, CmdQuit, b.Lookup(common.KeyEsc))
	assert.Equal(t, CmdNone, b.Lookup(9999))

	assert.True(t, ApplyParams(b.Lookup(common.KeyR), p))
	assert.Equal(t, ModeRayTrace, p.Snapshot().Mode)
	assert.True(t, ApplyParams(b.Lookup(common.KeyR), p))
	assert.Equal(t, ModeRaster, p.Snapshot().Mode)

	ApplyParams(b.Lookup(common.KeyL), p)
	assert.Equal(t, LightInfinite, p.Snapshot().Light.Type)
	ApplyParams(b.Lookup(common.KeyEqual), p)
	assert.Equal(t, float32(110), p.Snapshot().Light.Intensity)
	assert.True(t, p.TakeDirty())

	assert.False(t, ApplyParams(b.Lookup(common.KeyW), p))
	r, f, ok := MoveDirection(b.Lookup(common.KeyW))
	assert.True(t, ok)
	assert.Equal(t, float32(0), r)
	assert.Equal(t, float32(1), f)
}

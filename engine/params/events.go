package params

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// EventKind discriminates Event.
type EventKind int

const (
	EventKey EventKind = iota
	EventMouseMove
	EventMouseButton
	EventScroll
	EventResize
	EventClose
	EventParamEdit
)

// KeyAction mirrors the window system's press / release / repeat actions.
type KeyAction int

const (
	ActionRelease KeyAction = iota
	ActionPress
	ActionRepeat
)

// Event is one input or UI notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind   EventKind
	Key    int
	Button int
	Action KeyAction
	X, Y   float64
	Width  int
	Height int
	// Edit is applied to the render params on the control thread when Kind is EventParamEdit.
	Edit func(p *RenderParams)
}

// EventQueue buffers events from callbacks and other goroutines until the control thread drains it.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]Event, 0, 64)}
}

// Push appends an event. Safe from any goroutine.
func (q *EventQueue) Push(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain hands every queued event to fn in push order. Events pushed while draining
// are left for the next Drain so a frame sees a bounded batch.
//
// Parameters:
//   - fn: handler invoked on the calling goroutine
//
// Returns:
//   - int: the number of events handled
func (q *EventQueue) Drain(fn func(Event)) int {
	q.mu.Lock()
	batch := q.events
	q.events = make([]Event, 0, cap(batch))
	q.mu.Unlock()

	for _, e := range batch {
		fn(e)
	}
	return len(batch)
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// EditEvent wraps a parameter edit for delivery through the queue.
func EditEvent(fn func(p *RenderParams)) Event {
	return Event{Kind: EventParamEdit, Edit: fn}
}

// LightStep is how far one key press moves the light intensity.
const LightStep float32 = 10

// Command is the action a key binding triggers.
type Command int

const (
	CmdNone Command = iota
	CmdQuit
	CmdMoveForward
	CmdMoveBack
	CmdMoveLeft
	CmdMoveRight
	CmdToggleRayTrace
	CmdTogglePathTrace
	CmdToggleLightType
	CmdToggleAnimation
	CmdLightBrighter
	CmdLightDimmer
)

// Bindings maps key codes to commands.
type Bindings map[int]Command

// DefaultBindings are the viewer's keys: Esc/Q quit, WASD move, R ray tracing, P path tracing,
// L light type, Space animation, +/- light intensity.
func DefaultBindings() Bindings {
	return Bindings{
		common.KeyEsc:   CmdQuit,
		common.KeyQ:     CmdQuit,
		common.KeyW:     CmdMoveForward,
		common.KeyS:     CmdMoveBack,
		common.KeyA:     CmdMoveLeft,
		common.KeyD:     CmdMoveRight,
		common.KeyR:     CmdToggleRayTrace,
		common.KeyP:     CmdTogglePathTrace,
		common.KeyL:     CmdToggleLightType,
		common.KeySpace: CmdToggleAnimation,
		common.KeyEqual: CmdLightBrighter,
		common.KeyMinus: CmdLightDimmer,
	}
}

// Lookup returns the command for a key, or CmdNone.
func (b Bindings) Lookup(key int) Command {
	if c, ok := b[key]; ok {
		return c
	}
	return CmdNone
}

// ApplyParams performs the parameter side of a command and reports whether it was one.
// Camera movement and quit are handled by the caller.
func ApplyParams(c Command, p *RenderParams) bool {
	v := p.Snapshot()
	switch c {
	case CmdToggleRayTrace:
		if v.Mode == ModeRayTrace {
			p.SetMode(ModeRaster)
		} else {
			p.SetMode(ModeRayTrace)
		}
	case CmdTogglePathTrace:
		p.SetPathTracing(!v.PathTracing)
	case CmdToggleLightType:
		if v.Light.Type == LightPoint {
			p.SetLightType(LightInfinite)
		} else {
			p.SetLightType(LightPoint)
		}
	case CmdToggleAnimation:
		p.SetAnimate(!v.Animate)
	case CmdLightBrighter:
		p.SetLightIntensity(v.Light.Intensity + LightStep)
	case CmdLightDimmer:
		p.SetLightIntensity(v.Light.Intensity - LightStep)
	default:
		return false
	}
	return true
}

// MoveDirection returns the camera pan (right, forward) for a movement command.
func MoveDirection(c Command) (right, forward float32, ok bool) {
	switch c {
	case CmdMoveForward:
		return 0, 1, true
	case CmdMoveBack:
		return 0, -1, true
	case CmdMoveLeft:
		return -1, 0, true
	case CmdMoveRight:
		return 1, 0, true
	}
	return 0, 0, false
}

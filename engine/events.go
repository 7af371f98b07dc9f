package engine

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-rt/engine/params"
)

// drainEvents applies every queued event on the control thread.
func (e *engine) drainEvents() {
	e.events.Drain(e.handleEvent)
}

func (e *engine) handleEvent(ev params.Event) {
	switch ev.Kind {
	case params.EventKey:
		if ev.Action == params.ActionRelease {
			return
		}
		cmd := e.bindings.Lookup(ev.Key)
		if cmd == params.CmdQuit {
			e.Quit()
			return
		}
		if right, forward, ok := params.MoveDirection(cmd); ok {
			if right != 0 {
				e.control.PanRight(right)
			}
			if forward != 0 {
				e.control.PanForward(forward)
			}
			return
		}
		params.ApplyParams(cmd, e.params)
	case params.EventMouseButton:
		if ev.Button == 0 {
			e.dragging = ev.Action == params.ActionPress
			e.lastX, e.lastY = ev.X, ev.Y
		}
	case params.EventMouseMove:
		if e.dragging {
			e.control.Drag(float32(ev.X-e.lastX), float32(ev.Y-e.lastY))
		}
		e.lastX, e.lastY = ev.X, ev.Y
	case params.EventScroll:
		e.control.Zoom(float32(ev.Y))
	case params.EventResize:
		if err := e.Resize(ev.Width, ev.Height); err != nil && e.eventErr == nil {
			e.eventErr = fmt.Errorf("resize to %dx%d: %w", ev.Width, ev.Height, err)
		}
	case params.EventClose:
		e.Quit()
	case params.EventParamEdit:
		if ev.Edit != nil {
			ev.Edit(e.params)
		}
	}
}

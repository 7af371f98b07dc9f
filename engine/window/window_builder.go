package window

import "github.com/Carmen-Shannon/oxy-rt/engine/params"

// WindowBuilderOption is a functional option for configuring an engineWindow.
type WindowBuilderOption func(w *engineWindow)

func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial client area in pixels.
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width, w.height = width, height
	}
}

// WithSizeLimits bounds interactive resizing. A zero leaves that bound at its default.
//
// Parameters:
//   - minW, minH: smallest client area in pixels
//   - maxW, maxH: largest client area in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minW, minH, maxW, maxH int) WindowBuilderOption {
	return func(w *engineWindow) {
		if minW > 0 {
			w.minWidth = minW
		}
		if minH > 0 {
			w.minHeight = minH
		}
		if maxW > 0 {
			w.maxWidth = maxW
		}
		if maxH > 0 {
			w.maxHeight = maxH
		}
	}
}

// WithEventQueue makes the window push input into q instead of a queue of its own.
// The engine drains q at the start of every frame.
func WithEventQueue(q *params.EventQueue) WindowBuilderOption {
	return func(w *engineWindow) {
		w.events = q
	}
}

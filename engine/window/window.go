// Package window opens the viewer window and feeds its input into a params.EventQueue.
package window

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("window")

// Window provides platform windowing. Input is not delivered through callbacks: every key, mouse,
// scroll, resize and close notification is pushed onto the window's event queue, which the frame
// loop drains once per frame.
type Window interface {
	// Events returns the queue input events are pushed to.
	//
	// Returns:
	//   - *params.EventQueue: the queue shared with the frame loop
	Events() *params.EventQueue

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// PollEvents processes pending platform events without blocking.
	//
	// Returns:
	//   - bool: true while the window is still open
	PollEvents() bool

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// SetTitle replaces the title bar text.
	SetTitle(title string)

	// Close closes the window and releases platform resources. Safe to call more than once.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// Resize limits in pixels.
	minWidth, minHeight int
	maxWidth, maxHeight int

	// width and height are the current framebuffer size in pixels.
	width  int
	height int

	// events receives every input notification.
	events *params.EventQueue

	platform *glfwWindow
	closed   bool
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window with the specified options.
// Applies default values first, then each option in order. Must be called from the main goroutine.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: an InitializationError when the platform window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-rt",
		maxWidth:  7680,
		maxHeight: 4320,
		minWidth:  64,
		minHeight: 64,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.events == nil {
		w.events = params.NewEventQueue()
	}
	platform, err := openGLFW(w)
	if err != nil {
		return nil, &rterr.InitializationError{Capability: "window", Err: err}
	}
	w.platform = platform
	logger.Infof("opened window %q (%dx%d)", w.title, w.width, w.height)
	return w, nil
}

func (w *engineWindow) Events() *params.EventQueue {
	return w.events
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.closed {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) PollEvents() bool {
	if w.closed {
		return false
	}
	return w.platform.poll()
}

func (w *engineWindow) IsRunning() bool {
	return !w.closed && w.platform.alive()
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	if !w.closed {
		w.platform.setTitle(title)
	}
}

func (w *engineWindow) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.platform.destroy()
	logger.Debugf("closed window %q", w.title)
	return nil
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// resized records a framebuffer size change and queues it.
func (w *engineWindow) resized(width, height int) {
	w.width = width
	w.height = height
	w.events.Push(params.Event{Kind: params.EventResize, Width: width, Height: height})
}

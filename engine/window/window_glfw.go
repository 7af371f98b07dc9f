package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the GLFW handle behind an engineWindow. GLFW calls must stay on the locked OS thread.
type glfwWindow struct {
	win     *glfw.Window
	running bool
}

var keyActions = map[glfw.Action]params.KeyAction{
	glfw.Press:   params.ActionPress,
	glfw.Repeat:  params.ActionRepeat,
	glfw.Release: params.ActionRelease,
}

// openGLFW creates a client-API-less window sized from w and routes its callbacks into w's queue.
// On success the framebuffer size replaces w's requested size.
func openGLFW(w *engineWindow) (*glfwWindow, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	q := w.events
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		q.Push(params.Event{Kind: params.EventKey, Key: int(key), Action: keyActions[action]})
	})
	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		q.Push(params.Event{Kind: params.EventScroll, X: xoff, Y: yoff})
	})
	win.SetMouseButtonCallback(func(cw *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		x, y := cw.GetCursorPos()
		q.Push(params.Event{Kind: params.EventMouseButton, Button: int(button), Action: keyActions[action], X: x, Y: y})
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		q.Push(params.Event{Kind: params.EventMouseMove, X: x, Y: y})
	})
	win.SetCloseCallback(func(_ *glfw.Window) {
		q.Push(params.Event{Kind: params.EventClose})
	})
	// Framebuffer size, not window size: they differ on high-DPI displays.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})

	w.width, w.height = win.GetFramebufferSize()
	return &glfwWindow{win: win, running: true}, nil
}

func (g *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.win)
}

func (g *glfwWindow) alive() bool {
	return g.running && !g.win.ShouldClose()
}

// poll processes pending events without blocking and reports whether the window is still open.
func (g *glfwWindow) poll() bool {
	glfw.PollEvents()
	return g.alive()
}

func (g *glfwWindow) setTitle(title string) {
	g.win.SetTitle(title)
}

// destroy closes the window and terminates GLFW.
func (g *glfwWindow) destroy() {
	g.running = false
	g.win.Destroy()
	glfw.Terminate()
	runtime.UnlockOSThread()
}

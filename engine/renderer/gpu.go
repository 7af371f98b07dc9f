package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/cogentcore/webgpu/wgpu"
)

var logger = log.New("renderer")

// requiredStorageBuffers is the number of storage buffers the ray-tracing compute pass binds.
const requiredStorageBuffers = 7

// gpuImpl is the implementation of the GPU interface.
type gpuImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	width         int
	height        int

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	forceFallbackAdapter bool
	released             bool
}

// GPU is the WebGPU device context shared by the ray-tracing, raster and composite passes.
//
// Every pass records into its own command encoder and hands it to Submit; queue order is the
// barrier between acceleration-structure uploads, the render pass and the composite pass.
type GPU interface {
	// Device returns the logical device.
	Device() *wgpu.Device

	// Queue returns the device queue.
	Queue() *wgpu.Queue

	// SurfaceFormat returns the presentation format chosen by ConfigureSurface.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface texture format
	SurfaceFormat() wgpu.TextureFormat

	// ConfigureSurface (re)configures the swapchain. Callers drain in-flight work first.
	//
	// Parameters:
	//   - width, height: the surface size in pixels
	//
	// Returns:
	//   - error: a classified error if configuration failed
	ConfigureSurface(width, height int) error

	// AcquireFrame returns a view of the next swapchain image. Present releases it.
	//
	// Returns:
	//   - *wgpu.TextureView: the color target for the composite pass
	//   - error: a classified error (DeviceLost when the surface is lost)
	AcquireFrame() (*wgpu.TextureView, error)

	// Present displays the acquired swapchain image.
	Present()

	// DiscardFrame releases the acquired swapchain image without presenting it, so a dropped
	// frame leaves the previously presented image on screen.
	DiscardFrame()

	// OnSubmittedWorkDone calls fn once every submission made so far has completed.
	// Callbacks fire from Poll.
	OnSubmittedWorkDone(fn func())

	// Submit finishes the encoder, submits it and calls done once the GPU has finished the work.
	//
	// Parameters:
	//   - encoder: the recorded commands; released by Submit
	//   - done: optional completion callback, invoked from Poll
	//
	// Returns:
	//   - error: a classified error
	Submit(encoder *wgpu.CommandEncoder, done func()) error

	// Poll processes completed submissions and fires their callbacks.
	//
	// Parameters:
	//   - wait: block until the queue is empty
	Poll(wait bool)

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle()

	// CreateBuffer creates a buffer and uploads data when non-empty.
	//
	// Parameters:
	//   - label: debug label
	//   - usage: buffer usage flags; CopyDst is always added
	//   - data: initial contents (may be nil)
	//   - minSize: minimum size in bytes, rounded up to 16
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: a classified error (ResourceExhaustion on allocation failure)
	CreateBuffer(label string, usage wgpu.BufferUsage, data []byte, minSize uint64) (*wgpu.Buffer, error)

	// ShaderModule compiles WGSL source.
	ShaderModule(label, source string) (*wgpu.ShaderModule, error)

	// Release destroys the device and surface. Safe to call more than once.
	Release()
}

var _ GPU = &gpuImpl{}

// NewGPU requests an adapter and device able to run the ray-tracing compute pass.
//
// Parameters:
//   - surfaceDescriptor: the window surface to present to
//   - options: functional options (fallback adapter, present mode)
//
// Returns:
//   - GPU: the context
//   - error: InitializationError when no adapter or a required limit is unavailable
func NewGPU(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...GPUBuilderOption) (GPU, error) {
	runtime.LockOSThread()
	g := &gpuImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	for _, opt := range options {
		opt(g)
	}
	g.surface = g.instance.CreateSurface(surfaceDescriptor)

	a, err := g.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: g.forceFallbackAdapter,
		CompatibleSurface:    g.surface,
	})
	if err != nil {
		g.Release()
		return nil, &rterr.InitializationError{Capability: "webgpu adapter", Err: err}
	}
	g.adapter = a

	supported := a.GetLimits()
	if supported.Limits.MaxStorageBuffersPerShaderStage < requiredStorageBuffers {
		g.Release()
		return nil, &rterr.InitializationError{
			Capability: fmt.Sprintf("%d storage buffers per shader stage (adapter has %d)",
				requiredStorageBuffers, supported.Limits.MaxStorageBuffersPerShaderStage),
		}
	}

	limits := wgpu.DefaultLimits()
	limits.MaxStorageBuffersPerShaderStage = requiredStorageBuffers
	limits.MaxStorageBufferBindingSize = supported.Limits.MaxStorageBufferBindingSize
	limits.MaxBufferSize = supported.Limits.MaxBufferSize

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-rt device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		g.Release()
		return nil, &rterr.InitializationError{Capability: "webgpu device", Err: err}
	}
	g.device = d
	g.queue = d.GetQueue()

	logger.Infof("webgpu device ready (max storage binding %d bytes)", limits.MaxStorageBufferBindingSize)
	return g, nil
}

func (g *gpuImpl) Device() *wgpu.Device {
	return g.device
}

func (g *gpuImpl) Queue() *wgpu.Queue {
	return g.queue
}

func (g *gpuImpl) SurfaceFormat() wgpu.TextureFormat {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.surfaceFormat
}

func (g *gpuImpl) ConfigureSurface(width, height int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("configure surface: invalid size %dx%d", width, height)
	}

	capabilities := g.surface.GetCapabilities(g.adapter)
	if len(capabilities.Formats) == 0 {
		return &rterr.InitializationError{Capability: "surface formats"}
	}
	g.surfaceFormat = capabilities.Formats[0]
	for _, f := range capabilities.Formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			g.surfaceFormat = f
			break
		}
	}

	g.surface.Configure(g.adapter, g.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      g.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: g.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	g.width, g.height = width, height
	return nil
}

func (g *gpuImpl) AcquireFrame() (*wgpu.TextureView, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frameSurface != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := g.surface.GetCurrentTexture()
	if err != nil {
		return nil, Classify("acquire surface texture", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, Classify("create surface view", err)
	}
	g.frameSurface = surfaceTexture
	g.frameView = view
	return view, nil
}

func (g *gpuImpl) Present() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frameSurface == nil {
		return
	}
	g.surface.Present()
	g.frameView.Release()
	g.frameSurface.Release()
	g.frameView = nil
	g.frameSurface = nil
}

func (g *gpuImpl) DiscardFrame() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frameSurface == nil {
		return
	}
	g.frameView.Release()
	g.frameSurface.Release()
	g.frameView = nil
	g.frameSurface = nil
}

func (g *gpuImpl) OnSubmittedWorkDone(fn func()) {
	g.queue.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) {
		fn()
	})
}

func (g *gpuImpl) Submit(encoder *wgpu.CommandEncoder, done func()) error {
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return Classify("finish command encoder", err)
	}
	g.queue.Submit(commandBuffer)
	commandBuffer.Release()

	if done != nil {
		g.queue.OnSubmittedWorkDone(func(wgpu.QueueWorkDoneStatus) {
			done()
		})
	}
	return nil
}

func (g *gpuImpl) Poll(wait bool) {
	g.device.Poll(wait, nil)
}

func (g *gpuImpl) WaitIdle() {
	g.device.Poll(true, nil)
}

func (g *gpuImpl) CreateBuffer(label string, usage wgpu.BufferUsage, data []byte, minSize uint64) (*wgpu.Buffer, error) {
	size := max(uint64(len(data)), minSize, 16)
	size = (size + 15) &^ 15
	buf, err := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, Classify("create buffer "+label, err)
	}
	if len(data) > 0 {
		g.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func (g *gpuImpl) ShaderModule(label, source string) (*wgpu.ShaderModule, error) {
	m, err := g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", label, err)
	}
	return m, nil
}

func (g *gpuImpl) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return
	}
	g.released = true

	if g.frameView != nil {
		g.frameView.Release()
		g.frameView = nil
	}
	if g.frameSurface != nil {
		g.frameSurface.Release()
		g.frameSurface = nil
	}
	if g.queue != nil {
		g.queue.Release()
	}
	if g.device != nil {
		g.device.Release()
	}
	if g.adapter != nil {
		g.adapter.Release()
	}
	if g.surface != nil {
		g.surface.Release()
	}
	if g.instance != nil {
		g.instance.Release()
	}
}

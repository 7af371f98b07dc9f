// Package engine runs the hybrid frame loop: input and params, animation, acceleration structure
// updates, the raster or ray-tracing path, compositing and presentation.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/accel"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/composite"
	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/Carmen-Shannon/oxy-rt/engine/geometry"
	"github.com/Carmen-Shannon/oxy-rt/engine/log"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/raster"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/semaphore"
)

var logger = log.New("engine")

// engine implements the Engine interface.
type engine struct {
	cfg     *config.Config
	cfgDir  string
	backend renderer.BackendType
	debug   bool

	window   window.Window
	events   *params.EventQueue
	params   *params.RenderParams
	bindings params.Bindings
	camera   camera.Camera
	control  camera.CameraController

	scene  *scene.Assembly
	driver animator.Driver
	blas   *accel.BLASSet
	tlas   *accel.TLAS
	sbt    *raytracer.ShaderBindingTable
	acc    *accumulator.Accumulator

	rtPath     *raytracer.Path
	rasterPath *raster.Path
	compositor *composite.Compositor
	overlay    composite.Overlay
	progress   bool
	image      *renderer.Image

	gpu      renderer.GPU
	rtGPU    *raytracer.WGPUBackend
	rasterGP *raster.WGPUBackend
	resolver *composite.WGPUResolver
	rasterSW *raster.SoftwareBackend

	inFlight  *semaphore.Weighted
	maxFrames int64

	width, height int
	state         atomic.Int32
	clock         animationClock
	eventErr      error
	frames        uint64
	dragging      bool
	lastX, lastY  float64

	profiler         *profiler.Profiler
	profilingEnabled bool
	renderFrameLimit time.Duration
	titleEvery       uint64
	releaseObserver  func(resource string)

	quitChannel  chan struct{}
	quitOnce     sync.Once
	shutdownOnce sync.Once
}

// Engine is the main entry point for the renderer. It owns the scene, the acceleration
// structures, both render paths and the compositor, and runs one frame per RenderFrame call.
//
// Frame order: drain events, apply params, advance animation, update the TLAS, begin
// accumulation, trace or rasterize, composite, present. Every call runs on one goroutine.
type Engine interface {
	// RenderFrame renders one frame.
	//
	// Parameters:
	//   - ctx: cancels waiting for a free in-flight slot
	//   - now: the frame's wall-clock time; animation time is now minus the first frame, less any paused time
	//
	// Returns:
	//   - error: only fatal errors; dropped frames are logged and return nil
	RenderFrame(ctx context.Context, now time.Time) error

	// Run renders frames until the window closes, Quit is called or ctx is cancelled.
	// Panics inside the loop are recovered and turned into an error.
	//
	// Parameters:
	//   - ctx: stops the loop when cancelled
	//
	// Returns:
	//   - error: the fatal error that stopped the loop, nil on a clean quit
	Run(ctx context.Context) error

	// Quit asks Run to return after the current frame. Safe to call multiple times.
	Quit()

	// Resize drains in-flight frames and recreates size-dependent targets. Accumulated samples
	// are kept when the size did not change.
	//
	// Parameters:
	//   - width, height: new framebuffer size; zero suspends rendering
	//
	// Returns:
	//   - error: ResourceExhaustionError for sizes the accumulator cannot hold; the previous size stays in effect
	Resize(width, height int) error

	// Drain blocks until no frame is in flight.
	Drain(ctx context.Context) error

	// Shutdown drains and releases everything in order: TLAS, BLAS set, SBT and accumulator,
	// geometry store, then the device. Idempotent.
	Shutdown()

	// State returns the frame loop phase.
	State() State

	// Params returns the render params.
	Params() *params.RenderParams

	// Events returns the queue drained at the start of every frame.
	Events() *params.EventQueue

	// Camera returns the camera.
	Camera() camera.Camera

	// Scene returns the assembled scene.
	Scene() *scene.Assembly

	// TLAS returns the top-level acceleration structure.
	TLAS() *accel.TLAS

	// Accumulator returns the ray tracer's accumulator.
	Accumulator() *accumulator.Accumulator

	// Image returns the composited frame of the software backend (nil on the GPU backend).
	Image() *renderer.Image

	// SetOverlay sets the overlay composited over every frame (nil for none).
	SetOverlay(o composite.Overlay)

	// Profiler returns the frame statistics collector.
	Profiler() *profiler.Profiler
}

var _ Engine = &engine{}

// NewEngine builds the scene and every renderer component from cfg.
//
// Parameters:
//   - ctx: cancels scene loading
//   - cfg: the validated configuration
//   - options: functional options (window, prebuilt scene, backend override, profiling)
//
// Returns:
//   - Engine: the engine, ready for RenderFrame
//   - error: InitializationError when the GPU or window is unavailable, or a scene load failure
func NewEngine(ctx context.Context, cfg *config.Config, options ...EngineBuilderOption) (Engine, error) {
	backend, err := renderer.ParseBackend(cfg.Renderer.Backend)
	if err != nil {
		return nil, err
	}
	e := &engine{
		cfg:         cfg,
		backend:     backend,
		debug:       cfg.Renderer.Debug,
		bindings:    params.DefaultBindings(),
		width:       cfg.Window.Width,
		height:      cfg.Window.Height,
		maxFrames:   int64(max(cfg.Renderer.MaxFramesInFlight, 1)),
		profiler:    profiler.NewProfiler(),
		titleEvery:  30,
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if err := e.init(ctx); err != nil {
		e.Shutdown()
		return nil, err
	}
	return e, nil
}

func (e *engine) init(ctx context.Context) error {
	if e.window != nil {
		e.events = e.window.Events()
		if w, h := e.window.Width(), e.window.Height(); w > 0 && h > 0 {
			e.width, e.height = w, h
		}
	}
	if e.events == nil {
		e.events = params.NewEventQueue()
	}
	e.params = params.New(e.cfg.Params())
	e.inFlight = semaphore.NewWeighted(e.maxFrames)

	if err := e.initCamera(); err != nil {
		return err
	}

	if e.scene == nil {
		asm, err := scene.Build(ctx, e.cfg.Scene, scene.WithBaseDir(e.cfgDir))
		if err != nil {
			return fmt.Errorf("build scene: %w", err)
		}
		e.scene = asm
	}
	e.driver = animator.NewDriver(e.scene.Table, animator.WithEnabled(e.params.Snapshot().Animate))
	if _, err := animator.BindPlacements(e.driver, e.scene.Placements); err != nil {
		return err
	}

	if err := e.initBackends(); err != nil {
		return err
	}
	return e.initAccel()
}

func (e *engine) initCamera() error {
	up, err := config.ParseUp(e.cfg.Camera.Up)
	if err != nil {
		return err
	}
	e.control = camera.NewCameraController(
		camera.WithUpAxis(up),
		camera.WithEyeTarget(e.cfg.Camera.Eye, e.cfg.Camera.Target),
	)
	e.camera = camera.NewCamera(
		camera.WithUp(up),
		camera.WithLens(mgl32.DegToRad(e.cfg.Camera.Fov), e.cfg.Camera.Near, e.cfg.Camera.Far),
		camera.WithAspect(aspect(e.width, e.height)),
		camera.WithController(e.control),
	)
	return nil
}

func (e *engine) initBackends() error {
	workers := e.cfg.Renderer.Workers
	v := e.params.Snapshot()
	e.compositor = composite.NewCompositor(composite.WithExposure(v.Exposure))

	acc, err := accumulator.New(e.width, e.height, accumulator.WithMaxSamples(e.cfg.Renderer.MaxSamples))
	if err != nil {
		return err
	}
	e.acc = acc

	var (
		rt raytracer.Backend
		rs raster.Backend
	)
	switch e.backend {
	case renderer.BackendSoftware:
		rt = raytracer.NewSoftwareBackend(raytracer.WithTraceWorkers(workers))
		e.rasterSW = raster.NewSoftwareBackend(raster.WithTransformWorkers(workers))
		rs = e.rasterSW
		e.image = renderer.NewImage(e.width, e.height)
	case renderer.BackendWGPU:
		if e.window == nil {
			return &rterr.InitializationError{Capability: "webgpu surface (no window)"}
		}
		gpu, err := renderer.NewGPU(e.window.SurfaceDescriptor())
		if err != nil {
			return err
		}
		e.gpu = gpu
		if err := gpu.ConfigureSurface(e.width, e.height); err != nil {
			return err
		}
		if e.rtGPU, err = raytracer.NewWGPUBackend(gpu); err != nil {
			return err
		}
		if e.rasterGP, err = raster.NewWGPUBackend(gpu); err != nil {
			return err
		}
		if e.resolver, err = composite.NewWGPUResolver(gpu, e.compositor); err != nil {
			return err
		}
		rt, rs = e.rtGPU, e.rasterGP
	}
	e.rtPath = raytracer.NewPath(rt, e.acc)
	e.rasterPath = raster.NewPath(rs)
	logger.Infof("backend %s, %dx%d, %d frames in flight", e.backend, e.width, e.height, e.maxFrames)
	return nil
}

func (e *engine) initAccel() error {
	policy, err := accel.ParsePolicy(e.cfg.Renderer.TLASPolicy)
	if err != nil {
		return err
	}
	blasOpts := []accel.BLASSetBuilderOption{}
	tlasOpts := []accel.TLASBuilderOption{accel.WithPolicy(policy)}
	if e.cfg.Renderer.Workers > 0 {
		blasOpts = append(blasOpts, accel.WithBuildWorkers(e.cfg.Renderer.Workers))
	}
	if e.rtGPU != nil {
		blasOpts = append(blasOpts, accel.WithBLASResidency(e.rtGPU))
		tlasOpts = append(tlasOpts, accel.WithTLASResidency(e.rtGPU))
	}
	e.blas = accel.NewBLASSet(blasOpts...)
	snap := e.scene.Table.Snapshot()
	if err := e.ensureBLAS(snap); err != nil {
		return err
	}
	e.tlas = accel.NewTLAS(e.blas, tlasOpts...)
	if err := e.tlas.Rebuild(snap); err != nil {
		return fmt.Errorf("build tlas: %w", err)
	}

	e.sbt = raytracer.NewShaderBindingTable(raytracer.DefaultHitGroups())
	if err := e.sbt.Build(); err != nil {
		return err
	}
	logger.Infof("acceleration structures ready: %d blas, %d instances (%s)",
		e.blas.Len(), len(e.tlas.Instances()), policy)
	return nil
}

func aspect(w, h int) float32 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return float32(w) / float32(h)
}

func (e *engine) Run(ctx context.Context) (err error) {
	// Recover from panics inside the render loop to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("render loop recovered from panic: %v", r)
			err = fmt.Errorf("render loop panic: %v", r)
			e.Quit()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		default:
		}
		start := time.Now()
		if e.window != nil && !e.window.PollEvents() {
			e.Quit()
			return nil
		}
		if err := e.RenderFrame(ctx, start); err != nil {
			return err
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// Quit signals Run to stop. Uses sync.Once to ensure the channel is only closed once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) quitting() bool {
	select {
	case <-e.quitChannel:
		return true
	default:
		return false
	}
}

func (e *engine) Drain(ctx context.Context) error {
	if e.inFlight == nil {
		return nil
	}
	if err := e.acquire(ctx, e.maxFrames); err != nil {
		return err
	}
	e.inFlight.Release(e.maxFrames)
	return nil
}

// acquire takes n in-flight slots, polling the device so completion callbacks can free them.
func (e *engine) acquire(ctx context.Context, n int64) error {
	if e.gpu == nil {
		return e.inFlight.Acquire(ctx, n)
	}
	for !e.inFlight.TryAcquire(n) {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.gpu.Poll(true)
	}
	return nil
}

// ensureBLAS builds the bottom-level structures of meshes instanced in snap that have none yet.
// Meshes without instances never get one.
func (e *engine) ensureBLAS(snap scene.Snapshot) error {
	ids := snap.MeshesInUse()
	meshes := make([]*geometry.Mesh, 0, len(ids))
	for _, id := range ids {
		m, ok := e.scene.Store.Get(id)
		if !ok {
			return &rterr.NotBuiltError{Resource: "mesh", Key: fmt.Sprintf("%d", id)}
		}
		meshes = append(meshes, m)
	}
	if err := e.blas.EnsureAll(meshes); err != nil {
		return fmt.Errorf("build blas: %w", err)
	}
	return nil
}

func (e *engine) Resize(width, height int) error {
	if width == e.width && height == e.height {
		return nil
	}
	if err := e.Drain(context.Background()); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		e.width, e.height = width, height
		logger.Debugf("framebuffer %dx%d, rendering suspended", width, height)
		return nil
	}

	// the new size is committed only after every target accepted it
	oldW, oldH := e.acc.Size()
	if err := e.acc.Resize(width, height); err != nil {
		return err
	}
	if e.gpu != nil {
		if err := e.gpu.ConfigureSurface(width, height); err != nil {
			if rerr := e.acc.Resize(oldW, oldH); rerr != nil {
				logger.Warningf("restoring accumulator to %dx%d: %v", oldW, oldH, rerr)
			}
			return err
		}
	}
	if e.image != nil {
		e.image.Resize(width, height)
	}
	e.width, e.height = width, height
	e.camera.SetAspect(aspect(width, height))
	logger.Infof("resized to %dx%d", width, height)
	return nil
}

func (e *engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.Quit()
		if e.inFlight != nil {
			if err := e.Drain(context.Background()); err != nil {
				logger.Warningf("drain before shutdown: %v", err)
			}
		}
		e.setState(StateShutdown)

		release := func(name string, fn func()) {
			fn()
			if e.releaseObserver != nil {
				e.releaseObserver(name)
			}
		}
		if e.tlas != nil {
			release("tlas", e.tlas.Release)
		}
		if e.blas != nil {
			release("blas", e.blas.Release)
		}
		if e.sbt != nil {
			release("sbt", e.sbt.Release)
		}
		if e.acc != nil {
			release("accumulator", e.acc.Release)
		}
		if e.scene != nil {
			release("geometry", e.scene.Store.Release)
		}
		if e.rtPath != nil {
			release("raytracer", e.rtPath.Release)
		}
		if e.rasterPath != nil {
			release("raster", e.rasterPath.Release)
		}
		if e.resolver != nil {
			release("compositor", e.resolver.Release)
		}
		if e.gpu != nil {
			release("device", e.gpu.Release)
		}
		if e.profilingEnabled {
			var buf bytes.Buffer
			e.profiler.Summary(&buf)
			logger.Noticef("frame statistics\n%s", buf.String())
		}
		logger.Info("shutdown complete")
	})
}

func (e *engine) setState(s State) {
	e.state.Store(int32(s))
}

func (e *engine) State() State {
	return State(e.state.Load())
}

func (e *engine) Params() *params.RenderParams {
	return e.params
}

func (e *engine) Events() *params.EventQueue {
	return e.events
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Scene() *scene.Assembly {
	return e.scene
}

func (e *engine) TLAS() *accel.TLAS {
	return e.tlas
}

func (e *engine) Accumulator() *accumulator.Accumulator {
	return e.acc
}

func (e *engine) Image() *renderer.Image {
	return e.image
}

func (e *engine) SetOverlay(o composite.Overlay) {
	e.overlay = o
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

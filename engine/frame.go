package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine/accel"
	"github.com/Carmen-Shannon/oxy-rt/engine/accumulator"
	"github.com/Carmen-Shannon/oxy-rt/engine/composite"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/profiler"
	"github.com/Carmen-Shannon/oxy-rt/engine/raster"
	"github.com/Carmen-Shannon/oxy-rt/engine/raytracer"
	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// frameState carries one frame through its phases.
type frameState struct {
	values params.Values
	snap   scene.Snapshot
	view   *wgpu.TextureView
	stats  profiler.FrameStats
}

func (e *engine) RenderFrame(ctx context.Context, now time.Time) error {
	if e.State() == StateShutdown {
		return errors.New("engine is shut down")
	}
	// events may resize, which drains, so they are applied before taking a slot
	e.setState(StateSceneUpdate)
	e.drainEvents()
	if err := e.eventErr; err != nil {
		e.eventErr = nil
		e.setState(StateIdle)
		return e.dropFrame(err, profiler.FrameStats{})
	}
	if e.width <= 0 || e.height <= 0 || e.quitting() {
		e.setState(StateIdle)
		return nil
	}
	if err := e.acquire(ctx, 1); err != nil {
		return err
	}
	released := false
	release := func() {
		if !released {
			released = true
			e.inFlight.Release(1)
		}
	}

	start := time.Now()
	fs, err := e.frame(now)
	fs.stats.Duration = time.Since(start)

	if err != nil {
		if e.gpu != nil {
			e.gpu.DiscardFrame()
		}
		release()
		e.setState(StateIdle)
		return e.dropFrame(err, fs.stats)
	}

	e.setState(StatePresent)
	if e.gpu != nil {
		e.gpu.OnSubmittedWorkDone(func() { e.inFlight.Release(1) })
		released = true
		e.gpu.Present()
	} else {
		release()
	}
	e.setState(StateIdle)
	e.frames++
	e.tick(fs.stats)
	e.updateTitle(fs.values)
	return nil
}

// dropFrame returns err when it is fatal. Otherwise the frame is counted as dropped and the
// previous image stays on screen.
func (e *engine) dropFrame(err error, stats profiler.FrameStats) error {
	if rterr.IsFatal(err, rterr.PhaseFrame, e.debug) {
		logger.Errorf("fatal frame error: %v", err)
		return err
	}
	logger.Warningf("dropping frame %d: %v", e.frames, err)
	stats.Dropped = true
	e.tick(stats)
	return nil
}

func (e *engine) tick(stats profiler.FrameStats) {
	if e.profilingEnabled {
		e.profiler.Tick(stats)
	}
}

// frame runs the phases between acquiring an in-flight slot and presenting.
func (e *engine) frame(now time.Time) (*frameState, error) {
	fs := &frameState{}

	if e.params.TakeDirty() {
		e.acc.Invalidate()
	}
	fs.values = e.params.Snapshot()
	fs.stats.Path = fs.values.Mode.String()
	e.driver.SetEnabled(fs.values.Animate)
	e.compositor.SetExposure(fs.values.Exposure)
	e.camera.Update()

	t := e.clock.elapsed(now, fs.values.Animate)
	if e.driver.Enabled() {
		if _, err := e.driver.Advance(t.Seconds()); err != nil {
			return fs, err
		}
	}

	e.setState(StateAccelUpdate)
	fs.snap = e.scene.Table.Snapshot()
	if accel.NeedsRebuild(e.tlas.Generation(), fs.snap.Generation) {
		if err := e.ensureBLAS(fs.snap); err != nil {
			return fs, err
		}
	}
	kind, err := e.tlas.Update(fs.snap)
	if err != nil {
		return fs, fmt.Errorf("tlas update: %w", err)
	}
	fs.stats.Rebuilt = kind == accel.UpdateRebuilt
	fs.stats.Refitted = kind == accel.UpdateRefitted
	if kind != accel.UpdateNone {
		logger.Debugf("tlas %s at generation %d", kind, fs.snap.Generation)
	}

	fs.stats.Reset = e.acc.BeginFrame(accumulator.Signature{
		SceneGeneration: fs.snap.Generation,
		Camera:          e.camera.State(),
		Light:           fs.values.Light,
		Mode:            fs.values.Mode,
		PathTracing:     fs.values.PathTracing,
		MaxBounces:      fs.values.MaxBounces,
		ClearColor:      fs.values.ClearColor,
		Width:           e.width,
		Height:          e.height,
	})

	e.setState(StateRender)
	if e.gpu != nil {
		if fs.view, err = e.gpu.AcquireFrame(); err != nil {
			return fs, err
		}
	}
	switch fs.values.Mode {
	case params.ModeRayTrace:
		traced, err := e.trace(fs)
		if err != nil {
			return fs, err
		}
		fs.stats.Skipped = !traced
	default:
		if err := e.rasterize(fs); err != nil {
			return fs, err
		}
	}
	fs.stats.Samples = e.acc.SampleCount()

	e.setState(StateComposite)
	return fs, e.composite(fs)
}

// trace dispatches the ray-tracing path, rebuilding the TLAS and retrying once when it is stale.
func (e *engine) trace(fs *frameState) (bool, error) {
	frame := raytracer.Frame{
		InverseViewProjection: e.camera.InverseViewProjection(),
		Eye:                   e.camera.Eye(),
		Width:                 e.width,
		Height:                e.height,
		Generation:            fs.snap.Generation,
	}
	pc := raytracer.NewPushConstants(fs.values)
	traced, err := e.rtPath.Dispatch(e.tlas, e.sbt, pc, frame)
	if errors.Is(err, rterr.ErrStaleAcceleration) {
		logger.Debugf("stale tlas at dispatch: %v, rebuilding", err)
		if err := e.tlas.Rebuild(fs.snap); err != nil {
			return false, fmt.Errorf("tlas rebuild: %w", err)
		}
		fs.stats.Rebuilt = true
		traced, err = e.rtPath.Dispatch(e.tlas, e.sbt, pc, frame)
	}
	return traced, err
}

func (e *engine) rasterize(fs *frameState) error {
	if e.rasterGP != nil {
		e.rasterGP.SetTarget(fs.view)
	}
	_, err := e.rasterPath.Draw(fs.snap, e.scene.Store, raster.Frame{
		ViewProjection: e.camera.ViewProjection(),
		Eye:            e.camera.Eye(),
		Width:          e.width,
		Height:         e.height,
		Light:          fs.values.Light,
		ClearColor:     fs.values.ClearColor,
	})
	return err
}

func (e *engine) composite(fs *frameState) error {
	overlay := e.overlay
	if overlay == nil && e.progress && fs.values.Mode == params.ModeRayTrace {
		overlay = composite.NewProgressBar(e.width, e.height,
			float32(e.acc.SampleCount())/float32(e.acc.MaxSamples()))
	}
	if e.resolver != nil {
		return e.resolver.Resolve(composite.GPUFrame{
			Target:     fs.view,
			Mode:       fs.values.Mode,
			Accum:      e.rtGPU.AccumBuffer(),
			Samples:    e.acc.SampleCount(),
			Width:      e.width,
			Height:     e.height,
			Background: fs.values.ClearColor,
		}, overlay)
	}
	src := composite.Source{Mode: fs.values.Mode, Accum: e.acc, Background: fs.values.ClearColor}
	if fs.values.Mode == params.ModeRaster {
		src.Raster = e.rasterSW.Image()
	}
	return e.compositor.Resolve(src, overlay, e.image)
}

func (e *engine) updateTitle(v params.Values) {
	if e.window == nil || e.titleEvery == 0 || e.frames%e.titleEvery != 0 {
		return
	}
	title := fmt.Sprintf("%s [%s]", e.cfg.Window.Title, v.Mode)
	if v.Mode == params.ModeRayTrace {
		title = fmt.Sprintf("%s %d/%d samples", title, e.acc.SampleCount(), e.acc.MaxSamples())
	}
	e.window.SetTitle(title)
}

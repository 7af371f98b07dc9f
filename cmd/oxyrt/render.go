package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/urfave/cli"
)

// Render a still frame with the software backend and write it as a PNG.
func Render(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, dir, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	mode, err := config.ParseMode(ctx.String("mode"))
	if err != nil {
		return err
	}
	samples := ctx.Int("samples")
	if samples < 1 {
		return fmt.Errorf("--samples must be at least 1, got %d", samples)
	}
	width, height := cfg.Window.Width, cfg.Window.Height
	if w := ctx.Int("width"); w > 0 {
		width = w
	}
	if h := ctx.Int("height"); h > 0 {
		height = h
	}

	cfg.Renderer.Backend = renderer.BackendSoftware.String()
	cfg.Renderer.Mode = mode.String()
	cfg.Renderer.PathTracing = cfg.Renderer.PathTracing || ctx.Bool("path-tracing")
	cfg.Renderer.MaxSamples = uint32(samples)
	// a still frame must not move between samples
	cfg.Renderer.Animate = false

	eng, err := engine.NewEngine(context.Background(), cfg,
		engine.WithBackend(renderer.BackendSoftware),
		engine.WithConfigDir(dir),
		engine.WithSize(width, height),
		engine.WithProfiling(true),
	)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	frames := 1
	if mode == params.ModeRayTrace {
		frames = samples
	}
	start := time.Now()
	for i := 0; i < frames; i++ {
		if err := eng.RenderFrame(context.Background(), start); err != nil {
			return err
		}
	}
	logger.Noticef("rendered %dx%d %s in %s", width, height, mode, time.Since(start))

	out := ctx.String("out")
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()
	if err := png.Encode(f, eng.Image().ToNRGBA()); err != nil {
		return fmt.Errorf("encode %s: %w", out, err)
	}
	logger.Noticef("wrote %s", out)
	return nil
}

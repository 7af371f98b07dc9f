package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/params"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rt/engine/window"
	"github.com/urfave/cli"
)

// View opens a window and runs the interactive render loop until it is closed.
func View(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, dir, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	events := params.NewEventQueue()
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithSizeLimits(64, 64, 0, 0),
		window.WithEventQueue(events),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := engine.NewEngine(runCtx, cfg,
		engine.WithWindow(win),
		engine.WithBackend(renderer.BackendWGPU),
		engine.WithConfigDir(dir),
		engine.WithSize(win.Width(), win.Height()),
		engine.WithProfiling(ctx.Bool("profile")),
		engine.WithProgressOverlay(ctx.Bool("progress")),
		engine.WithRenderFrameLimit(ctx.Float64("fps")),
	)
	if err != nil {
		return err
	}
	defer eng.Shutdown()

	return eng.Run(runCtx)
}

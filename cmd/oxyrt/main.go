package main

import (
	"errors"
	"os"

	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "oxyrt"
	app.Usage = "view and render instanced scenes with rasterization or ray tracing"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	configFlag := cli.StringFlag{
		Name:  "config, c",
		Usage: "scene configuration file (.toml or .yaml); the built-in scene is used when empty",
	}
	app.Commands = []cli.Command{
		{
			Name:  "view",
			Usage: "open an interactive window",
			Description: `
Open a window and render the configured scene with the wgpu backend.
R toggles ray tracing, P path tracing, L the light type, space the animation.
Drag to orbit, scroll to zoom, WASD to move the target. Esc or Q quits.`,
			Flags: []cli.Flag{
				configFlag,
				cli.BoolFlag{
					Name:  "profile",
					Usage: "log frame statistics periodically and a summary at exit",
				},
				cli.BoolFlag{
					Name:  "progress",
					Usage: "draw a sample progress bar while ray tracing",
				},
				cli.Float64Flag{
					Name:  "fps",
					Usage: "cap the frame rate (0 = uncapped)",
				},
			},
			Action: View,
		},
		{
			Name:  "render",
			Usage: "render a still frame headlessly to a PNG file",
			Description: `
Render the configured scene on the CPU. In raytrace mode frames are accumulated
until the requested number of samples is reached.`,
			Flags: []cli.Flag{
				configFlag,
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
				cli.IntFlag{
					Name:  "samples, s",
					Value: 64,
					Usage: "samples per pixel in raytrace mode",
				},
				cli.StringFlag{
					Name:  "mode, m",
					Value: "raytrace",
					Usage: "raster or raytrace",
				},
				cli.BoolFlag{
					Name:  "path-tracing",
					Usage: "trace indirect bounces",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "frame width (defaults to the configured window width)",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "frame height (defaults to the configured window height)",
				},
			},
			Action: Render,
		},
		{
			Name:   "inspect",
			Usage:  "print mesh and acceleration structure statistics",
			Flags:  []cli.Flag{configFlag},
			Action: Inspect,
		},
	}

	os.Exit(exitCode(app.Run(os.Args)))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, rterr.ErrInitialization):
		logger.Errorf("%v", err)
		return 2
	default:
		logger.Errorf("%v", err)
		return 1
	}
}

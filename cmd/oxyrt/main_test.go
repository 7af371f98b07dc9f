package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/rterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(fmt.Errorf("engine: %w", &rterr.InitializationError{Capability: "window"})))
	assert.Equal(t, 1, exitCode(&rterr.DeviceLostError{Reason: "test"}))
	assert.Equal(t, 1, exitCode(errors.New("bad config")))
}

func newContext(t *testing.T, flags map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name := range flags {
		set.String(name, "", "")
	}
	for name, value := range flags {
		require.NoError(t, set.Set(name, value))
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestRenderWritesPNG(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(scenePath, []byte(`
[window]
width = 24
height = 16

[renderer]
workers = 2

[[scene.meshes]]
name = "box"
primitive = "cube"
`), 0o644))

	out := filepath.Join(dir, "frame.png")
	ctx := newContext(t, map[string]string{
		"config":  scenePath,
		"out":     out,
		"samples": "2",
		"mode":    "raytrace",
	})
	require.NoError(t, Render(ctx))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 24, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestRenderRejectsUnknownMode(t *testing.T) {
	ctx := newContext(t, map[string]string{"mode": "wireframe", "samples": "1"})
	assert.Error(t, Render(ctx))
}

func TestInspectDefaultScene(t *testing.T) {
	assert.NoError(t, Inspect(newContext(t, map[string]string{})))
}

package main

import (
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-rt/engine/config"
	"github.com/urfave/cli"
)

// loadConfig reads --config, or returns the built-in scene when the flag is empty.
// The returned directory resolves relative mesh paths.
func loadConfig(ctx *cli.Context) (*config.Config, string, error) {
	path := ctx.String("config")
	if path == "" {
		return config.Default(), ".", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	logger.Infof("loaded scene %q from %s", cfg.Scene.Name, path)
	return cfg, filepath.Dir(path), nil
}

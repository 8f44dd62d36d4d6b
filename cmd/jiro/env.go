package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/ShayCichocki/jiro/internal/assets"
	"github.com/ShayCichocki/jiro/internal/config"
	"github.com/ShayCichocki/jiro/internal/log"
	"github.com/ShayCichocki/jiro/internal/project"
	"github.com/ShayCichocki/jiro/internal/version"
)

// appEnv is everything a command needs about the current project.
type appEnv struct {
	fs       afero.Fs
	layout   *project.Layout
	store    *config.Store
	cfg      *config.Config
	logger   *log.Logger
	resolver *assets.Resolver
}

// loadEnv discovers the project for the working directory and builds the
// asset resolver over its tiers. projectName overrides name detection.
func loadEnv(projectName string) (*appEnv, error) {
	fsys := afero.NewOsFs()

	layout, store, err := project.Discover(project.Options{
		ProjectName: projectName,
		Version:     version.Get(),
		Fs:          fsys,
	})
	if err != nil {
		return nil, fmt.Errorf("discover project: %w", err)
	}

	env := &appEnv{fs: fsys, layout: layout, store: store}
	if err := env.refresh(); err != nil {
		return nil, err
	}
	return env, nil
}

// refresh rebuilds the config snapshot, logger and resolver after the
// layout or store changed.
func (e *appEnv) refresh() error {
	cfg, err := e.store.Config()
	if err != nil {
		return err
	}
	e.cfg = cfg

	logger, err := openLogger(e.layout, cfg)
	if err != nil {
		return err
	}
	e.logger.Close()
	e.logger = logger

	resolver, err := assets.New(e.fs, e.layout.Tiers(), assets.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build asset resolver: %w", err)
	}
	e.resolver = resolver
	return nil
}

// Close releases the log file.
func (e *appEnv) Close() {
	if e == nil {
		return
	}
	e.logger.Close()
}

// openLogger opens the log file once the project is initialized (or an
// explicit log.file is configured). Before that logging is a no-op so read
// commands never create files in the working tree.
func openLogger(layout *project.Layout, cfg *config.Config) (*log.Logger, error) {
	if cfg.Log.File == "" && !layout.Initialized() {
		return log.Nop(), nil
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	logger, err := log.Open(layout.LogPath(cfg), level)
	if err != nil {
		return nil, err
	}
	if debugEnabled() {
		logger.SetMinLevel(log.LevelDebug)
	}
	return logger, nil
}

func debugEnabled() bool {
	if debugFlag {
		return true
	}
	v := os.Getenv("JIRO_DEBUG")
	return v != "" && v != "0" && v != "false"
}

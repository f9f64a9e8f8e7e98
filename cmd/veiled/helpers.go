package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/adeonir/veiled/internal/config"
	"github.com/adeonir/veiled/internal/engine"
	"github.com/adeonir/veiled/internal/registry"
	"github.com/adeonir/veiled/internal/tmutil"
)

// newLogger builds the logger handed through the call chain. Verbose mode
// lowers the level to debug; there is no process-wide logging state.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newEngine wires config, registry location, and the tmutil applier into
// an engine for one command invocation.
func newEngine(log *slog.Logger) (*engine.Engine, *config.Config, error) {
	configPath, err := config.DefaultPath()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	stateDir, err := registry.DefaultDir()
	if err != nil {
		return nil, nil, err
	}
	return engine.New(cfg, configPath, stateDir, tmutil.Tmutil{}, log), cfg, nil
}

// fatal prints err and exits non-zero. Only used for failures that abort
// the whole command (registry I/O, lock acquisition, bad arguments).
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/philipcardiff/snek5000/internal/ctxlog"
	"github.com/philipcardiff/snek5000/internal/params"
	"github.com/philipcardiff/snek5000/internal/registry"
	"github.com/philipcardiff/snek5000/internal/restart"
)

// caseFileName is the conventional per-case override file, picked up
// automatically when no explicit -params file is given.
const caseFileName = "case.hcl"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	params   *params.Params
	caseDir  string
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, the stage catalog,
// and the case's parameter tree loaded and overridden. Failures here are
// startup errors; they panic and are recovered into a clean message by the
// caller.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	p, err := loadParams(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("failed to load case parameters: %w", err))
	}
	logger.Debug("Parameter tree loaded.", "case", cfg.CaseDir)

	if err := applyOverrides(p, cfg); err != nil {
		panic(fmt.Errorf("failed to apply parameter overrides: %w", err))
	}
	logger.Debug("Parameter overrides applied.", "count", len(cfg.Sets))

	return &App{
		outW:     outW,
		logger:   logger,
		registry: registry.New(),
		params:   p,
		caseDir:  cfg.CaseDir,
	}
}

// Params returns the application's parameter tree. This is primarily for testing.
func (a *App) Params() *params.Params {
	return a.params
}

// loadParams builds the parameter tree for this invocation: solver
// defaults, then either the restart loader or the case override file.
func loadParams(ctx context.Context, cfg *Config) (*params.Params, error) {
	if cfg.Restart || cfg.StartFrom != "" || cfg.UseCheckpoint != 0 {
		return restart.LoadForRestart(ctx, cfg.CaseDir, restart.Options{
			StartFrom:  cfg.StartFrom,
			Checkpoint: cfg.UseCheckpoint,
			SessionID:  -1,
			DryRun:     cfg.DryRun,
		})
	}

	p := params.CreateDefault()

	overrideFile := cfg.ParamsFile
	if overrideFile == "" {
		candidate := filepath.Join(cfg.CaseDir, caseFileName)
		if _, err := os.Stat(candidate); err == nil {
			overrideFile = candidate
		}
	}
	if overrideFile != "" {
		if err := p.LoadFile(overrideFile); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// applyOverrides applies flag shorthands first and -set key=value pairs
// last, so the most specific override wins.
func applyOverrides(p *params.Params, cfg *Config) error {
	if cfg.Nproc > 0 {
		if err := p.Set("run.nproc", cty.NumberIntVal(int64(cfg.Nproc))); err != nil {
			return err
		}
	}

	for _, set := range cfg.Sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok {
			return fmt.Errorf("invalid -set %q: expected key=value", set)
		}
		if err := p.SetFromString(key, value); err != nil {
			return err
		}
	}
	return nil
}

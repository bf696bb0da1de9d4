package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sorlineage/internal/cli/config"
	"github.com/leapstack-labs/sorlineage/internal/cli/output"
	"github.com/leapstack-labs/sorlineage/internal/engine"
	"github.com/leapstack-labs/sorlineage/internal/highlight"
	"github.com/leapstack-labs/sorlineage/internal/loader"
	"github.com/leapstack-labs/sorlineage/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// EngineOptions selects how a command gets its lineage build.
type EngineOptions struct {
	// FromState loads the latest stored snapshot instead of the workbook.
	FromState bool
	// WithStore opens the state store next to the workbook source.
	WithStore bool
	// SkipLoad leaves the engine empty.
	SkipLoad bool
}

// NewCommandContext creates a CommandContext with a loaded engine and a
// renderer. The cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, opts EngineOptions) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd.Context(), cfg, logger, opts)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: newRenderer(cmd, cfg),
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: newRenderer(cmd, cfg),
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration, loading defaults, file and
// environment when no command has loaded it yet.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{Source: config.DefaultSource, StatePath: config.DefaultStateFile}
	}
	return cfg
}

func newRenderer(cmd *cobra.Command, cfg *config.Config) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
}

// createEngine builds an engine for cfg and loads it as opts asks.
func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts EngineOptions) (*engine.Engine, error) {
	engineCfg := engine.Config{
		Layout:  cfg.Layout,
		Palette: highlight.Palette(cfg.GetUIConfig().Palette),
		Logger:  logger,
	}

	if !opts.FromState {
		if err := cfg.ValidateSource(); err != nil {
			return nil, err
		}
		src, err := loader.Open(cfg.SourceOptions())
		if err != nil {
			return nil, err
		}
		engineCfg.Source = src
	}

	if opts.FromState || opts.WithStore {
		store, err := openStore(ctx, cfg.StatePath, logger, opts.FromState)
		if err != nil {
			return nil, err
		}
		engineCfg.Store = store
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		if engineCfg.Store != nil {
			_ = engineCfg.Store.Close()
		}
		return nil, err
	}
	if opts.SkipLoad {
		return eng, nil
	}

	if opts.FromState {
		if _, err := eng.LoadFromState(ctx); err != nil {
			_ = eng.Close()
			if errors.Is(err, state.ErrNoSnapshot) {
				return nil, fmt.Errorf("%w in %s\nHint: run 'sorlineage index' first", err, cfg.StatePath)
			}
			return nil, err
		}
		return eng, nil
	}

	if _, _, err := eng.Reload(ctx); err != nil {
		_ = eng.Close()
		return nil, err
	}
	return eng, nil
}

// openStore opens the state database. Reading requires an existing file;
// writing creates the state directory.
func openStore(ctx context.Context, path string, logger *slog.Logger, mustExist bool) (*state.SQLiteStore, error) {
	if path != ":memory:" {
		if mustExist {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return nil, fmt.Errorf("state database does not exist: %s\nHint: run 'sorlineage index' first", path)
			}
		} else if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(ctx, path); err != nil {
		return nil, err
	}
	return store, nil
}

package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tbmerge/internal/cli/config"
	"github.com/leapstack-labs/tbmerge/internal/cli/output"
	"github.com/leapstack-labs/tbmerge/internal/engine"
	"github.com/leapstack-labs/tbmerge/internal/tabular"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the config, logger and
// renderer the root command stored in the context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	return newCommandContext(cmd, getConfig(cmd.Context()))
}

func newCommandContext(cmd *cobra.Command, cfg *config.Config) (*CommandContext, error) {
	ctx := cmd.Context()
	logger := config.GetLogger(ctx)

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, err
	}

	renderer := output.FromContext(ctx)
	if renderer == nil {
		renderer = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: renderer,
	}, nil
}

// getConfig returns the configuration stored in ctx, the last loaded one,
// or the defaults when none was loaded.
func getConfig(ctx context.Context) *config.Config {
	if cfg := config.FromContext(ctx); cfg != nil {
		return cfg
	}
	return defaultConfig()
}

func defaultConfig() *config.Config {
	return &config.Config{
		NewPath:      config.DefaultNewPath,
		OldPath:      config.DefaultOldPath,
		OutPath:      config.DefaultOutPath,
		NAValues:     tabular.DefaultNAValues(),
		Engine:       config.DefaultEngine,
		OutputFormat: config.DefaultOutput,
	}
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	delim, err := cfg.DelimiterRune()
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Config{
		NewPath:     cfg.NewPath,
		OldPath:     cfg.OldPath,
		OutputPath:  cfg.OutPath,
		MappingFile: cfg.MappingFile,
		Delimiter:   delim,
		NAValues:    cfg.NAValues,
		QueryEngine: cfg.Engine,
		Logger:      logger,
	})
}

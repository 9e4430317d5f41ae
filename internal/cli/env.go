package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/errs"
	"clipforge/internal/logx"
	"clipforge/internal/metrics"
	"clipforge/internal/pipeline"
	"clipforge/internal/script"
	"clipforge/internal/tools"
)

// environment is what every rendering command needs before it can start.
type environment struct {
	cfg      config.Config
	logger   *slog.Logger
	resolver *script.Resolver
	tools    tools.Paths
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := config.Err(cfg.Validate()); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadEnv(cmd *cobra.Command) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logx.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	table, err := script.LoadTable(cfg.Fonts.Dir, cfg.Fonts.Files, logx.WithComponent(logger, "fonts"))
	if err != nil {
		return nil, err
	}
	bins, err := tools.Locate(cfg.Tools)
	if err != nil {
		return nil, err
	}
	return &environment{
		cfg:      cfg,
		logger:   logger,
		resolver: script.NewResolver(table),
		tools:    bins,
	}, nil
}

func (e *environment) runner(m *metrics.Metrics) *pipeline.Runner {
	return pipeline.New(e.cfg, e.resolver, pipeline.Tools{FFmpeg: e.tools.FFmpeg, FFprobe: e.tools.FFprobe}, m, e.logger)
}

// exitCode separates bad input (2) and interruption (130) from everything
// else (1).
func exitCode(err error) int {
	switch {
	case errs.IsValidation(err):
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	}
	return 1
}

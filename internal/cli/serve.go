package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/fetch"
	"clipforge/internal/history"
	"clipforge/internal/logx"
	"clipforge/internal/metrics"
	"clipforge/internal/server"
)

var serveAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /v1/memes over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	cfg := env.cfg
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	store, err := history.Open(cfg.Server.HistoryDB, logx.WithComponent(env.logger, "history"))
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	runner := env.runner(m)
	if f, ok := runner.Fetcher.(*fetch.Fetcher); ok {
		f.RemoteOnly = true
	}
	srv := server.NewServer(server.Config{
		Addr:           cfg.Server.Addr,
		Renderer:       runner,
		History:        store,
		Metrics:        m,
		Logger:         logx.WithComponent(env.logger, "http"),
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxConcurrent:  cfg.Server.MaxConcurrent,
		MaxDuration:    cfg.Limits.MaxDurationSeconds,
		StartTime:      time.Now(),
	})

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"clipforge/internal/history"
	"clipforge/internal/logx"
	"clipforge/internal/metrics"
)

// History records renders. *history.Store satisfies it.
type History interface {
	Begin(ctx context.Context, id, memeID, mode string) error
	Finish(ctx context.Context, id, status, errorKind, errMsg, output string, elapsed time.Duration) error
	Get(ctx context.Context, id string) (history.Render, error)
	List(ctx context.Context, limit int) ([]history.Render, error)
}

var _ History = (*history.Store)(nil)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type Config struct {
	Addr           string
	Renderer       Renderer
	History        History
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxConcurrent  int
	// MaxDuration is the largest max_duration_seconds a request may ask for.
	MaxDuration    int
	StartTime      time.Time
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logx.Discard()
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.StartTime.IsZero() {
		c.StartTime = time.Now()
	}
	return c
}

func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

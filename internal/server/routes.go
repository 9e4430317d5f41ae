package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clipforge/internal/compose"
	"clipforge/internal/errs"
	"clipforge/internal/history"
	"clipforge/internal/logx"
	"clipforge/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// NewRouter mounts the API on a chi router.
func NewRouter(cfg Config) *chi.Mux {
	cfg = cfg.withDefaults()
	slots := make(chan struct{}, cfg.MaxConcurrent)

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/healthz", healthHandler(cfg))
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/memes", renderHandler(cfg, slots))
		r.Get("/renders", listRendersHandler(cfg))
		r.Get("/renders/{id}", getRenderHandler(cfg))
	})
	return r
}

func healthHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func renderHandler(cfg Config, slots chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body MemeRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		req := body.ToRequest()
		// rejected before queueing so bad input never waits for a slot
		if err := CheckRequest(req, cfg.MaxDuration); err != nil {
			writeRenderError(w, err)
			return
		}

		ctx := r.Context()
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
		}

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
		case <-ctx.Done():
			WriteError(w, http.StatusServiceUnavailable, "render capacity exhausted", "BUSY")
			return
		}

		logger := logx.WithRequestID(cfg.Logger, RequestIDFrom(r.Context()))
		renderID := uuid.NewString()
		if cfg.History != nil {
			if err := cfg.History.Begin(ctx, renderID, req.ID, string(req.Mode())); err != nil {
				logger.Warn("history begin failed", "err", err)
			}
		}

		outDir, err := os.MkdirTemp("", "clipforge-out-*")
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
			return
		}
		defer os.RemoveAll(outDir)

		start := time.Now()
		res, err := cfg.Renderer.Run(ctx, req, pipeline.Options{OutDir: outDir, Archive: true})
		finish(ctx, cfg, logger, renderID, res, err, time.Since(start))
		if err != nil {
			writeRenderError(w, err)
			return
		}

		f, err := os.Open(res.Path)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
			return
		}
		defer f.Close()

		name := filepath.Base(res.Path)
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))
		w.Header().Set("X-Render-ID", renderID)
		http.ServeContent(w, r, name, time.Unix(res.Metadata.Timestamp, 0), f)
	}
}

func finish(ctx context.Context, cfg Config, logger *slog.Logger, id string, res pipeline.Result, err error, elapsed time.Duration) {
	if cfg.History == nil {
		return
	}
	status, kind, msg, output := history.StatusOK, "", "", filepath.Base(res.Path)
	if err != nil {
		status, kind, msg, output = history.StatusFailed, errs.KindOf(err).String(), err.Error(), ""
	}
	// the request context may already be done; the outcome is still recorded
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	if herr := cfg.History.Finish(ctx, id, status, kind, msg, output, elapsed); herr != nil {
		logger.Warn("history finish failed", "err", herr)
	}
}

// StatusFor maps an error to its HTTP status and error code.
func StatusFor(err error) (int, string) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errs.KindAsset:
		return http.StatusUnprocessableEntity, "ASSET_ERROR"
	case errs.KindEngine:
		return http.StatusBadGateway, "ENGINE_ERROR"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "TIMEOUT"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeRenderError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		resp.Error = "internal server error"
	}
	WriteJSON(w, status, resp)
}

func listRendersHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.History == nil {
			WriteJSON(w, http.StatusOK, RendersResponse{Renders: []history.Render{}})
			return
		}
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}
		renders, err := cfg.History.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list renders", "INTERNAL_ERROR")
			return
		}
		if renders == nil {
			renders = []history.Render{}
		}
		WriteJSON(w, http.StatusOK, RendersResponse{Renders: renders})
	}
}

func getRenderHandler(cfg Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if cfg.History == nil {
			WriteError(w, http.StatusNotFound, "render not found", "NOT_FOUND")
			return
		}
		render, err := cfg.History.Get(r.Context(), id)
		if errors.Is(err, history.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "render not found", "NOT_FOUND")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load render", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, render)
	}
}

var _ Renderer = (*pipeline.Runner)(nil)

// Renderer runs one composition request.
type Renderer interface {
	Run(ctx context.Context, req compose.Request, opts pipeline.Options) (pipeline.Result, error)
}

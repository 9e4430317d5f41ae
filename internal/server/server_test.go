package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/archive"
	"clipforge/internal/compose"
	"clipforge/internal/errs"
	"clipforge/internal/history"
	"clipforge/internal/metrics"
	"clipforge/internal/pipeline"
)

type fakeRenderer struct {
	got   compose.Request
	calls int
	err   error
	// started and release, when set, hold Run open until the test lets go.
	started chan struct{}
	release chan struct{}
}

func (f *fakeRenderer) Run(_ context.Context, req compose.Request, opts pipeline.Options) (pipeline.Result, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.got = req
	f.calls++
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	path := filepath.Join(opts.OutDir, req.ID+"_pack.zip")
	if err := os.WriteFile(path, []byte("PK-archive"), 0o644); err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{
		ID:       req.ID,
		Mode:     req.Mode(),
		Path:     path,
		Metadata: archive.Metadata{MemeID: req.ID, Timestamp: 1700000000},
	}, nil
}

func testConfig(t *testing.T, r Renderer) Config {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return Config{Renderer: r, History: store, Metrics: metrics.New()}
}

func postMeme(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/memes", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPostMemeServesArchive(t *testing.T) {
	fr := &fakeRenderer{}
	cfg := testConfig(t, fr)
	router := NewRouter(cfg)

	rr := postMeme(t, router, MemeRequest{
		MemeID:          "cat",
		Scene1URL:       "https://x/1.mp4",
		Scene2URL:       "https://x/2.mp4",
		Scene3URL:       "https://x/3.mp4",
		FinalMusicURL:   " https://x/m.mp3 ",
		MemeTopText:     "top",
		MemeProjectName: "acme",
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="cat_pack.zip"`)
	assert.Equal(t, "PK-archive", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	assert.Equal(t, compose.ModeStitch, fr.got.Mode())
	assert.Equal(t, "https://x/m.mp3", fr.got.Music)
	assert.True(t, fr.got.Branding)

	renderID := rr.Header().Get("X-Render-ID")
	render, err := cfg.History.Get(context.Background(), renderID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusOK, render.Status)
	assert.Equal(t, "cat_pack.zip", render.Output)
	assert.Equal(t, "stitch_3_scenes", render.Mode)
}

func TestPostMemeErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"validation", errs.Invalid("clips", "need 1 or 3 clips, got %d", 2), http.StatusBadRequest, "VALIDATION_ERROR", "clips"},
		{"asset", errs.Asset("fetch", "https://x/1.mp4", errors.New("status 404")), http.StatusUnprocessableEntity, "ASSET_ERROR", ""},
		{"engine", errs.Engine("ffmpeg", errors.New("exit status 1"), []byte("boom"), 100), http.StatusBadGateway, "ENGINE_ERROR", ""},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, &fakeRenderer{err: tt.err})
			rr := postMeme(t, NewRouter(cfg), MemeRequest{FinalStitchVideo: "https://x/v.mp4"})

			require.Equal(t, tt.status, rr.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.field, resp.Field)

			renders, err := cfg.History.List(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, renders, 1)
			assert.Equal(t, history.StatusFailed, renders[0].Status)
		})
	}
}

func TestPostMemeRejectsLocalAssets(t *testing.T) {
	tests := []struct {
		name  string
		body  MemeRequest
		field string
	}{
		{"absolute path", MemeRequest{FinalStitchVideo: "/etc/passwd"}, "clips[0]"},
		{"file url", MemeRequest{FinalStitchVideo: "file:///etc/passwd"}, "clips[0]"},
		{"relative scene", MemeRequest{Scene1URL: "https://x/1.mp4", Scene2URL: "../2.mp4", Scene3URL: "https://x/3.mp4"}, "clips[1]"},
		{"local dialogue", MemeRequest{FinalStitchVideo: "https://x/v.mp4", FinalDialogue: "/srv/voice.wav"}, "final_dialogue"},
		{"local music", MemeRequest{FinalStitchVideo: "https://x/v.mp4", FinalMusicURL: "file:///srv/song.mp3"}, "final_music_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRenderer{}
			rr := postMeme(t, NewRouter(testConfig(t, fr)), tt.body)

			require.Equal(t, http.StatusBadRequest, rr.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, "VALIDATION_ERROR", resp.Code)
			assert.Equal(t, tt.field, resp.Field)
			assert.Zero(t, fr.calls)
		})
	}
}

func TestPostMemeValidatesBeforeWaitingForSlot(t *testing.T) {
	fr := &fakeRenderer{started: make(chan struct{}), release: make(chan struct{})}
	cfg := testConfig(t, fr)
	cfg.MaxConcurrent = 1
	cfg.RequestTimeout = 500 * time.Millisecond
	router := NewRouter(cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		postMeme(t, router, MemeRequest{FinalStitchVideo: "https://x/v.mp4"})
	}()
	<-fr.started

	rr := postMeme(t, router, MemeRequest{Scene1URL: "https://x/1.mp4", Scene2URL: "https://x/2.mp4"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	close(fr.release)
	<-done
}

func TestPostMemeBadBody(t *testing.T) {
	cfg := testConfig(t, &fakeRenderer{})
	req := httptest.NewRequest(http.MethodPost, "/v1/memes", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	NewRouter(cfg).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRendersEndpoints(t *testing.T) {
	cfg := testConfig(t, &fakeRenderer{})
	router := NewRouter(cfg)
	postMeme(t, router, MemeRequest{FinalStitchVideo: "https://x/v.mp4", MemeID: "one"})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/renders?limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list RendersResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list.Renders, 1)
	assert.Equal(t, "one", list.Renders[0].MemeID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/renders/"+list.Renders[0].ID, nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/renders/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/renders?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	cfg := testConfig(t, &fakeRenderer{})
	router := NewRouter(cfg)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestToRequest(t *testing.T) {
	off := false
	tests := []struct {
		name  string
		in    MemeRequest
		clips []string
	}{
		{"single", MemeRequest{FinalStitchVideo: "a.mp4"}, []string{"a.mp4"}},
		{"alias", MemeRequest{FinalStitchedVideo: "b.mp4"}, []string{"b.mp4"}},
		{"scenes win", MemeRequest{FinalStitchVideo: "a.mp4", Scene1URL: "1", Scene2URL: "2", Scene3URL: "3"}, []string{"1", "2", "3"}},
		{"partial scenes fall back to single", MemeRequest{FinalStitchVideo: "a.mp4", Scene1URL: "1"}, []string{"a.mp4"}},
		{"partial scenes alone", MemeRequest{Scene1URL: "1", Scene3URL: "3"}, []string{"1", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.clips, tt.in.ToRequest().Clips)
		})
	}

	req := MemeRequest{FinalStitchVideo: "a.mp4", IncludeBranding: &off}.ToRequest()
	assert.False(t, req.Branding)
	assert.Equal(t, "clipforge", req.ID)
}

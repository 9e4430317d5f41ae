package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipforge/internal/errs"
)

func TestExt(t *testing.T) {
	tests := []struct {
		ref  string
		def  string
		want string
	}{
		{"https://cdn.example.com/a/clip.MOV?sig=abc", DefaultVideoExt, ".mov"},
		{"https://cdn.example.com/stream", DefaultVideoExt, ".mp4"},
		{"https://cdn.example.com/track", DefaultAudioExt, ".mp3"},
		{"https://cdn.example.com/v1.2/track", DefaultAudioExt, ".mp3"},
		{"/data/music.wav", DefaultAudioExt, ".wav"},
		{"file:///data/scene.webm", DefaultVideoExt, ".webm"},
		{"https://x.example.com/a.weirdextension", DefaultVideoExt, ".mp4"},
	}
	for _, tt := range tests {
		if got := Ext(tt.ref, tt.def); got != tt.want {
			t.Errorf("Ext(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestIsRemote(t *testing.T) {
	if !IsRemote("https://example.com/a.mp4") || !IsRemote("http://example.com/a") {
		t.Fatal("http(s) URLs should be remote")
	}
	for _, ref := range []string{"/tmp/a.mp4", "file:///tmp/a.mp4", "ftp://example.com/a", "https:///nohost"} {
		if IsRemote(ref) {
			t.Errorf("IsRemote(%q) = true", ref)
		}
	}
}

func TestFetchDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/moved.mp4":
			http.Redirect(w, r, "/clip.mp4", http.StatusFound)
		case "/clip.mp4":
			w.Write([]byte("not really a video"))
		case "/empty.mp3":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(5*time.Second, 1024, nil)
	dir := t.TempDir()

	got, err := f.Fetch(context.Background(), srv.URL+"/moved.mp4", dir, "clip", DefaultVideoExt)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got != filepath.Join(dir, "clip.mp4") {
		t.Fatalf("path = %s", got)
	}
	data, err := os.ReadFile(got)
	if err != nil || string(data) != "not really a video" {
		t.Fatalf("contents = %q, %v", data, err)
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/empty.mp3", dir, "music", DefaultAudioExt)
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty payload = %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "music.mp3")); !os.IsNotExist(statErr) {
		t.Fatal("empty download left a file behind")
	}

	_, err = f.Fetch(context.Background(), srv.URL+"/missing.mp4", dir, "scene1", DefaultVideoExt)
	var ae *errs.AssetError
	if !errors.As(err, &ae) || ae.Asset != srv.URL+"/missing.mp4" {
		t.Fatalf("404 = %v, want asset error naming the URL", err)
	}
}

func TestFetchSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	f := New(time.Second, 16, nil)
	_, err := f.Fetch(context.Background(), srv.URL+"/big.mp4", t.TempDir(), "clip", DefaultVideoExt)
	if !errors.Is(err, ErrTooLarge) || errs.KindOf(err) != errs.KindAsset {
		t.Fatalf("Fetch = %v, want size limit asset error", err)
	}
}

func TestFetchLocal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "source.MOV")
	if err := os.WriteFile(src, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	f := New(time.Second, 0, nil)

	got, err := f.Fetch(context.Background(), "file://"+src, dir, "scene2", DefaultVideoExt)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if filepath.Base(got) != "scene2.mov" {
		t.Fatalf("path = %s", got)
	}

	if _, err := f.Fetch(context.Background(), filepath.Join(dir, "nope.mp4"), dir, "clip", DefaultVideoExt); errs.KindOf(err) != errs.KindAsset {
		t.Fatalf("missing local file = %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.mp3")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(context.Background(), empty, dir, "music", DefaultAudioExt); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty local file = %v", err)
	}
}

func TestFetchRemoteOnlyRefusesLocal(t *testing.T) {
	src := filepath.Join(t.TempDir(), "secret.mp4")
	if err := os.WriteFile(src, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	f := New(time.Second, 0, nil)
	f.RemoteOnly = true

	for _, ref := range []string{src, "file://" + src} {
		if _, err := f.Fetch(context.Background(), ref, dir, "clip", DefaultVideoExt); !errors.Is(err, ErrNotRemote) {
			t.Fatalf("Fetch(%q) err = %v, want ErrNotRemote", ref, err)
		}
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("refused fetch wrote %v", entries)
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/config"
)

func TestCheckToolsMissingBinary(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "ffmpeg")
	result := checkTools(context.Background(), config.ToolsConfig{FFmpeg: missing})
	if result.Status != "error" || !strings.Contains(result.Summary, "ffmpeg") {
		t.Errorf("got %+v, want ffmpeg reported missing", result)
	}
}

func TestCheckConfigWithError(t *testing.T) {
	result := checkConfig(config.Config{}, fmt.Errorf("unmarshal config: bad yaml"))
	if result.Status != "error" || result.Name != "Config" {
		t.Errorf("got %+v, want Config error", result)
	}
}

func TestCheckConfigUnsupportedVersion(t *testing.T) {
	cfg := config.Default()
	cfg.Version = 7
	if result := checkConfig(cfg, nil); result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
}

func TestCheckFonts(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "NotoSans-Bold.ttf"), []byte("font"), 0o644); err != nil {
		t.Fatal(err)
	}

	fc := config.FontsConfig{Dir: dir, Files: map[string]string{
		"english": "NotoSans-Bold.ttf",
		"thai":    "NotoSansThai-Bold.ttf",
	}}
	if result := checkFonts(fc); result.Status != "warning" {
		t.Errorf("partial fonts: got %+v, want warning", result)
	}

	fc.Files = map[string]string{"english": "missing.ttf"}
	if result := checkFonts(fc); result.Status != "error" {
		t.Errorf("missing english: got %+v, want error", result)
	}
}

func TestCheckScratch(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	if result := checkScratch(root); result.Status != "ok" {
		t.Fatalf("got %+v, want ok", result)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("doctor left files behind: %v", entries)
	}
}

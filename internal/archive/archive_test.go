package archive

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "my-meme.mp4")
	if err := os.WriteFile(video, []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}

	clip := "https://cdn.example.com/a.mp4"
	meta := Metadata{
		MemeID:          "my meme",
		Mode:            "single_video",
		IncludeBranding: true,
		Project:         "acme",
		Inputs:          Inputs{FinalStitchVideo: &clip, MemeTopText: "top"},
	}
	meta.Stamp(time.Unix(1700000000, 0))

	out := filepath.Join(dir, "my-meme_pack.zip")
	if err := Write(out, meta, video); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 2 || zr.File[0].Name != MetadataName || zr.File[1].Name != "my-meme.mp4" {
		t.Fatalf("entries = %v", zr.File)
	}
	for _, f := range zr.File {
		if f.Method != zip.Deflate {
			t.Fatalf("%s stored with method %d", f.Name, f.Method)
		}
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("metadata not json: %v", err)
	}
	if doc["timestamp"] != float64(1700000000) || doc["mode"] != "single_video" {
		t.Fatalf("metadata = %s", raw)
	}
	inputs := doc["inputs"].(map[string]any)
	if inputs["scene1_url"] != nil || inputs["final_stitch_video"] != clip {
		t.Fatalf("inputs = %v", inputs)
	}
	if doc["outputs"].(map[string]any)["video"] != "my-meme.mp4" {
		t.Fatalf("outputs = %v", doc["outputs"])
	}
}

func TestWriteMissingVideoLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "x_pack.zip")
	if err := Write(out, Metadata{}, filepath.Join(dir, "missing.mp4")); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("leftover files: %v", entries)
	}
}

// Package archive packages a finished render with its metadata document.
package archive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// MetadataName is the archive entry holding the metadata document.
const MetadataName = "metadata.json"

// Inputs echoes the request. Unused references are null.
type Inputs struct {
	FinalStitchVideo *string `json:"final_stitch_video"`
	Scene1URL        *string `json:"scene1_url"`
	Scene2URL        *string `json:"scene2_url"`
	Scene3URL        *string `json:"scene3_url"`
	FinalDialogue    *string `json:"final_dialogue"`
	FinalMusicURL    *string `json:"final_music_url"`
	MemeTopText      string  `json:"meme_top_text"`
	MemeBottomText   string  `json:"meme_bottom_text"`
}

// Outputs names the files in the archive.
type Outputs struct {
	Video string `json:"video"`
}

// Metadata is the document stored next to the video.
type Metadata struct {
	MemeID          string  `json:"meme_id"`
	Mode            string  `json:"mode"`
	IncludeBranding bool    `json:"include_branding"`
	Project         string  `json:"project"`
	Inputs          Inputs  `json:"inputs"`
	Outputs         Outputs `json:"outputs"`
	Timestamp       int64   `json:"timestamp"`
}

// Stamp sets the timestamp to t in unix seconds.
func (m *Metadata) Stamp(t time.Time) {
	m.Timestamp = t.Unix()
}

// Write creates a deflate-compressed zip at path holding metadata.json and
// the video under its base name. The archive appears at path only once
// complete.
func Write(path string, meta Metadata, videoPath string) error {
	if meta.Outputs.Video == "" {
		meta.Outputs.Video = filepath.Base(videoPath)
	}
	doc, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	zw := zip.NewWriter(tmp)
	if err := addBytes(zw, MetadataName, doc); err != nil {
		cleanup()
		return err
	}
	if err := addFile(zw, meta.Outputs.Video, videoPath); err != nil {
		cleanup()
		return err
	}
	if err := zw.Close(); err != nil {
		cleanup()
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename archive: %w", err)
	}
	return nil
}

func addBytes(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: time.Now()})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func addFile(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header %s: %w", path, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipforge/internal/compose"
	"clipforge/internal/paths"
	"clipforge/internal/server"
)

// requestFlags are shared by render and plan.
type requestFlags struct {
	requestFile string
	clips       []string
	id          string
	top         string
	bottom      string
	project     string
	noBranding  bool
	dialogue    string
	music       string
	musicVolume float64
	maxDuration int
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.requestFile, "request", "", "Read the request from a JSON file in the HTTP body format")
	fl.StringArrayVar(&f.clips, "clip", nil, "Video URL or path; pass once for a single video or three times for a stitch")
	fl.StringVar(&f.id, "id", "", "Meme id used to name the output")
	fl.StringVar(&f.top, "top", "", "Top caption")
	fl.StringVar(&f.bottom, "bottom", "", "Bottom caption")
	fl.StringVar(&f.project, "project", "", "Project name for the brand watermark")
	fl.BoolVar(&f.noBranding, "no-branding", false, "Omit the brand watermark")
	fl.StringVar(&f.dialogue, "dialogue", "", "Dialogue audio URL or path")
	fl.StringVar(&f.music, "music", "", "Background music URL or path")
	fl.Float64Var(&f.musicVolume, "music-volume", 0, "Music gain (overrides the configured default)")
	fl.IntVar(&f.maxDuration, "max-duration", 0, "Cap the output length in seconds (single video only)")
}

func (f *requestFlags) build(cmd *cobra.Command) (compose.Request, error) {
	if f.requestFile != "" {
		if len(f.clips) > 0 {
			return compose.Request{}, errors.New("--request and --clip are mutually exclusive")
		}
		return readRequestFile(f.requestFile)
	}

	req := compose.Request{
		ID:                 f.id,
		Clips:              f.clips,
		TopText:            f.top,
		BottomText:         f.bottom,
		Branding:           !f.noBranding,
		ProjectName:        f.project,
		Dialogue:           f.dialogue,
		Music:              f.music,
		MaxDurationSeconds: f.maxDuration,
	}
	if cmd.Flags().Changed("music-volume") {
		v := f.musicVolume
		req.MusicVolume = &v
	}
	if req.ID == "" {
		req.ID = paths.DefaultSlug
	}
	return req, nil
}

func readRequestFile(path string) (compose.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return compose.Request{}, fmt.Errorf("read request: %w", err)
	}
	var body server.MemeRequest
	if err := json.Unmarshal(data, &body); err != nil {
		return compose.Request{}, fmt.Errorf("parse request %s: %w", path, err)
	}
	return body.ToRequest(), nil
}

package server

import (
	"fmt"
	"strings"

	"clipforge/internal/compose"
	"clipforge/internal/errs"
	"clipforge/internal/fetch"
	"clipforge/internal/history"
	"clipforge/internal/paths"
	"clipforge/internal/stitch"
)

// MemeRequest is the JSON body of POST /v1/memes.
type MemeRequest struct {
	FinalStitchVideo   string `json:"final_stitch_video"`
	FinalStitchedVideo string `json:"final_stitched_video"`

	Scene1URL string `json:"scene1_url"`
	Scene2URL string `json:"scene2_url"`
	Scene3URL string `json:"scene3_url"`

	FinalDialogue string   `json:"final_dialogue"`
	FinalMusicURL string   `json:"final_music_url"`
	MusicVolume   *float64 `json:"music_volume,omitempty"`

	MemeTopText     string `json:"meme_top_text"`
	MemeBottomText  string `json:"meme_bottom_text"`
	MemeProjectName string `json:"meme_project_name"`
	IncludeBranding *bool  `json:"include_branding,omitempty"`

	MemeID             string `json:"meme_id"`
	MaxDurationSeconds int    `json:"max_duration_seconds"`
}

// ToRequest maps the body onto a composition request. Three scene URLs
// select stitch mode. Otherwise the single video is used; partial scene
// lists without a single video are passed through so validation reports
// the clip count.
func (m MemeRequest) ToRequest() compose.Request {
	req := compose.Request{
		ID:                 m.MemeID,
		TopText:            m.MemeTopText,
		BottomText:         m.MemeBottomText,
		Branding:           m.IncludeBranding == nil || *m.IncludeBranding,
		ProjectName:        m.MemeProjectName,
		Dialogue:           strings.TrimSpace(m.FinalDialogue),
		Music:              strings.TrimSpace(m.FinalMusicURL),
		MusicVolume:        m.MusicVolume,
		MaxDurationSeconds: m.MaxDurationSeconds,
	}
	if req.ID == "" {
		req.ID = paths.DefaultSlug
	}

	var scenes []string
	for _, s := range []string{m.Scene1URL, m.Scene2URL, m.Scene3URL} {
		if s = strings.TrimSpace(s); s != "" {
			scenes = append(scenes, s)
		}
	}
	single := strings.TrimSpace(m.FinalStitchVideo)
	if single == "" {
		single = strings.TrimSpace(m.FinalStitchedVideo)
	}

	switch {
	case len(scenes) == stitch.SceneCount:
		req.Clips = scenes
	case single != "":
		req.Clips = []string{single}
	default:
		req.Clips = scenes
	}
	return req
}

// CheckRequest validates req and requires every asset to be an http(s)
// URL. The service never reads files from its own disk for a client.
func CheckRequest(req compose.Request, maxDuration int) error {
	if err := compose.Validate(req, maxDuration); err != nil {
		return err
	}
	for i, c := range req.Clips {
		if !fetch.IsRemote(c) {
			return errs.Invalid(fmt.Sprintf("clips[%d]", i), "must be an http(s) URL")
		}
	}
	if req.HasDialogue() && !fetch.IsRemote(req.Dialogue) {
		return errs.Invalid("final_dialogue", "must be an http(s) URL")
	}
	if req.HasMusic() && !fetch.IsRemote(req.Music) {
		return errs.Invalid("final_music_url", "must be an http(s) URL")
	}
	return nil
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptime_s"`
}

// RendersResponse is the body of GET /v1/renders.
type RendersResponse struct {
	Renders []history.Render `json:"renders"`
}

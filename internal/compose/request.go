// Package compose turns a meme request and the probed facts about its inputs
// into one processing graph.
package compose

import (
	"fmt"
	"strings"

	"clipforge/internal/errs"
	"clipforge/internal/stitch"
)

// Mode is how the base clip is produced.
type Mode string

const (
	ModeSingle Mode = "single_video"
	ModeStitch Mode = "stitch_3_scenes"
)

// DefaultMaxDurationSeconds bounds Request.MaxDurationSeconds when no other
// limit is configured.
const DefaultMaxDurationSeconds = 120

// Request is a validated-once description of one meme render.
type Request struct {
	ID string
	// Clips holds one reference in single mode or three in stitch mode, in
	// playback order.
	Clips       []string
	TopText     string
	BottomText  string
	Branding    bool
	ProjectName string
	Dialogue    string
	Music       string
	// MusicVolume defaults to the configured volume when nil.
	MusicVolume *float64
	// MaxDurationSeconds caps the single-mode clip; 0 means uncapped.
	MaxDurationSeconds int
}

// Mode reports the composition mode implied by the clip count.
func (r Request) Mode() Mode {
	if len(r.Clips) == stitch.SceneCount {
		return ModeStitch
	}
	return ModeSingle
}

// HasDialogue reports whether a dialogue track was supplied.
func (r Request) HasDialogue() bool { return strings.TrimSpace(r.Dialogue) != "" }

// HasMusic reports whether a music track was supplied.
func (r Request) HasMusic() bool { return strings.TrimSpace(r.Music) != "" }

// Validate checks a request before any asset is fetched or probed.
// maxDuration is the largest accepted duration cap; 0 selects
// DefaultMaxDurationSeconds.
func Validate(req Request, maxDuration int) error {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDurationSeconds
	}
	if err := validateShape(req); err != nil {
		return err
	}
	if req.MaxDurationSeconds < 0 || req.MaxDurationSeconds > maxDuration {
		return errs.Invalid("max_duration_seconds", "must be between 0 and %d, got %d", maxDuration, req.MaxDurationSeconds)
	}
	return nil
}

// validateShape checks what the planner itself depends on.
func validateShape(req Request) error {
	switch len(req.Clips) {
	case 1, stitch.SceneCount:
	default:
		return errs.Invalid("clips", "need 1 clip or exactly %d scene clips, got %d", stitch.SceneCount, len(req.Clips))
	}
	for i, c := range req.Clips {
		if strings.TrimSpace(c) == "" {
			return errs.Invalid(fmt.Sprintf("clips[%d]", i), "url is required")
		}
	}

	if req.MaxDurationSeconds < 0 {
		return errs.Invalid("max_duration_seconds", "must not be negative, got %d", req.MaxDurationSeconds)
	}
	if v := req.MusicVolume; v != nil && (*v < 0 || *v > 1) {
		return errs.Invalid("music_volume", "must be within [0,1], got %v", *v)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks value ranges and references that Load cannot repair.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateVersion()...)
	results = append(results, c.validateFonts()...)
	results = append(results, c.validateAudio()...)
	results = append(results, c.validateSizes()...)
	return results
}

// Err folds error-level results into one error, or nil.
func Err(results []ValidationResult) error {
	var msgs []string
	for _, r := range results {
		if r.Level == "error" {
			msgs = append(msgs, r.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func (c Config) validateVersion() []ValidationResult {
	if c.Version != 1 {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("unsupported config version %d", c.Version),
		}}
	}
	return nil
}

func (c Config) validateFonts() []ValidationResult {
	var results []ValidationResult
	if strings.TrimSpace(c.Fonts.Files["english"]) == "" {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "fonts.files.english is required",
		})
	}
	if info, err := os.Stat(c.Fonts.Dir); err != nil || !info.IsDir() {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("font directory %q not found", c.Fonts.Dir),
		})
	}
	return results
}

func (c Config) validateAudio() []ValidationResult {
	var results []ValidationResult
	if v := c.Audio.MusicVolumeValue(); v < 0 || v > 1 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("audio.music_volume %v outside [0,1]", v),
		})
	}
	switch c.Audio.StitchOriginal {
	case StitchOriginalMix, StitchOriginalDrop:
	default:
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("audio.stitch_original must be %q or %q, got %q", StitchOriginalMix, StitchOriginalDrop, c.Audio.StitchOriginal),
		})
	}
	return results
}

func (c Config) validateSizes() []ValidationResult {
	var results []ValidationResult
	positive := []struct {
		name  string
		value int
	}{
		{"text.max_chars_per_line", c.Text.MaxCharsPerLine},
		{"brand.font_size", c.Brand.FontSize},
		{"audio.sample_rate", c.Audio.SampleRate},
		{"stitch.fps", c.Stitch.FPS},
		{"limits.max_duration_seconds", c.Limits.MaxDurationSeconds},
		{"server.max_concurrent", c.Server.MaxConcurrent},
	}
	for _, p := range positive {
		if p.value <= 0 {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("%s must be positive, got %d", p.name, p.value),
			})
		}
	}
	if (c.Stitch.Width > 0) != (c.Stitch.Height > 0) {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "stitch.width and stitch.height must be set together",
		})
	}
	if c.Fetch.Timeout < 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: "fetch.timeout must not be negative",
		})
	}
	return results
}

package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"clipforge/internal/errs"
)

// Info is what the pipeline needs to know about a media file.
type Info struct {
	Path            string
	HasVideo        bool
	Width           int
	Height          int
	HasAudio        bool
	DurationSeconds float64
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

// Prober reads stream facts with ffprobe.
type Prober struct {
	Runner Runner
	Binary string
	Logger *slog.Logger
}

// NewProber returns a prober for the ffprobe binary at path.
func NewProber(runner Runner, path string, logger *slog.Logger) *Prober {
	if runner == nil {
		runner = CmdRunner{Logger: logger}
	}
	if path == "" {
		path = "ffprobe"
	}
	return &Prober{Runner: runner, Binary: path, Logger: logger}
}

// Probe returns the first video stream's geometry, whether any audio stream
// exists and the container duration. Unreadable media is an AssetError.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	args := []string{
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-print_format", "json",
		path,
	}
	if p.Logger != nil {
		p.Logger.Debug("ffprobe", "path", path)
	}
	res, err := p.Runner.Run(ctx, p.Binary, args, RunOptions{})
	if err != nil {
		return Info{}, errs.Asset("probe", path, errs.Engine("ffprobe", err, res.Stderr, diagnosticTail))
	}
	info, err := parseProbe(res.Stdout)
	if err != nil {
		return Info{}, errs.Asset("probe", path, err)
	}
	info.Path = path
	return info, nil
}

func parseProbe(raw []byte) (Info, error) {
	if len(raw) == 0 {
		return Info{}, errors.New("ffprobe produced no output")
	}
	var parsed ffprobeOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Info{}, fmt.Errorf("decode ffprobe output: %w", err)
	}

	var info Info
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.HasVideo = true
				info.Width = s.Width
				info.Height = s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}

	if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil && d > 0 {
		info.DurationSeconds = d
	} else {
		for _, s := range parsed.Streams {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > info.DurationSeconds {
				info.DurationSeconds = d
			}
		}
	}

	if !info.HasVideo && !info.HasAudio {
		return Info{}, errors.New("no audio or video streams")
	}
	return info, nil
}

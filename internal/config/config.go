package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = "clipforge.yaml"

// Stitch policies for the clips' own audio when a track is added.
const (
	StitchOriginalMix  = "mix"
	StitchOriginalDrop = "drop"
)

// Config captures everything a render needs besides the request itself.
type Config struct {
	Version int           `yaml:"version"`
	Fonts   FontsConfig   `yaml:"fonts"`
	Brand   BrandConfig   `yaml:"brand"`
	Text    TextConfig    `yaml:"text"`
	Audio   AudioConfig   `yaml:"audio"`
	Stitch  StitchConfig  `yaml:"stitch"`
	Output  OutputConfig  `yaml:"output"`
	Scratch ScratchConfig `yaml:"scratch"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Limits  LimitsConfig  `yaml:"limits"`
	Tools   ToolsConfig   `yaml:"tools"`
}

// FontsConfig locates the per-script font files. Relative file names
// resolve against Dir.
type FontsConfig struct {
	Dir   string            `yaml:"dir"`
	Files map[string]string `yaml:"files"`
}

// BrandConfig controls the bottom-left watermark.
type BrandConfig struct {
	Prefix       string `yaml:"prefix"`
	FontSize     int    `yaml:"font_size"`
	BorderWidth  int    `yaml:"border_width"`
	MarginX      int    `yaml:"margin_x"`
	MarginBottom int    `yaml:"margin_bottom"`
	NonLatinLift *int   `yaml:"non_latin_lift,omitempty"`
}

// NonLatinLiftValue returns the effective lift for non-English project names.
func (b BrandConfig) NonLatinLiftValue() int {
	if b.NonLatinLift == nil {
		return 2
	}
	return *b.NonLatinLift
}

// TextConfig styles the top and bottom meme text.
type TextConfig struct {
	MaxCharsPerLine int    `yaml:"max_chars_per_line"`
	FontColor       string `yaml:"font_color"`
	BorderColor     string `yaml:"border_color"`
	ShadowColor     string `yaml:"shadow_color"`
	ShadowOffset    int    `yaml:"shadow_offset"`
}

// AudioConfig describes the common mix format and the output audio codec.
type AudioConfig struct {
	SampleFormat   string   `yaml:"sample_format"`
	SampleRate     int      `yaml:"sample_rate"`
	ChannelLayout  string   `yaml:"channel_layout"`
	MusicVolume    *float64 `yaml:"music_volume,omitempty"`
	Codec          string   `yaml:"codec"`
	BitrateKbps    int      `yaml:"bitrate_kbps"`
	StitchOriginal string   `yaml:"stitch_original"`
}

// MusicVolumeValue returns the default music attenuation.
func (a AudioConfig) MusicVolumeValue() float64 {
	if a.MusicVolume == nil {
		return 0.3
	}
	return *a.MusicVolume
}

// StitchConfig is the target profile scene clips are re-encoded to before
// they are joined. Width and Height are optional.
type StitchConfig struct {
	VideoCodec       string `yaml:"video_codec"`
	Preset           string `yaml:"preset"`
	CRF              *int   `yaml:"crf,omitempty"`
	PixelFormat      string `yaml:"pixel_format"`
	FPS              int    `yaml:"fps"`
	AudioCodec       string `yaml:"audio_codec"`
	AudioBitrateKbps int    `yaml:"audio_bitrate_kbps"`
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
}

// OutputConfig is the final encode.
type OutputConfig struct {
	VideoCodec string `yaml:"video_codec"`
	Preset     string `yaml:"preset"`
	CRF        *int   `yaml:"crf,omitempty"`
	// Archive packages the video with metadata.json into a zip.
	Archive *bool `yaml:"archive,omitempty"`
}

// ArchiveValue reports whether renders are packaged as a zip by default.
func (o OutputConfig) ArchiveValue() bool {
	if o.Archive == nil {
		return true
	}
	return *o.Archive
}

// ScratchConfig locates per-request working directories.
type ScratchConfig struct {
	Root string `yaml:"root"`
}

// FetchConfig bounds asset downloads.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	HistoryDB      string        `yaml:"history_db"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ToolsConfig pins the media binaries. Empty values are looked up on PATH.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg,omitempty"`
	FFprobe string `yaml:"ffprobe,omitempty"`
}

// LimitsConfig bounds request parameters.
type LimitsConfig struct {
	MaxDurationSeconds int `yaml:"max_duration_seconds"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: 1,
		Fonts: FontsConfig{
			Dir: "public/fonts",
			Files: map[string]string{
				"english":  "NotoSans-Bold.ttf",
				"chinese":  "NotoSansSC-Bold.ttf",
				"japanese": "NotoSansJP-Bold.ttf",
				"korean":   "NotoSansKR-Bold.ttf",
				"arabic":   "NotoSansArabic-Bold.ttf",
				"bengali":  "NotoSansBengali-Bold.ttf",
				"tamil":    "NotoSansTamil-Bold.ttf",
				"thai":     "NotoSansThai-Bold.ttf",
				"tagalog":  "NotoSansTagalog-Regular.ttf",
			},
		},
		Brand: BrandConfig{
			Prefix:       "luna.fun/memes/",
			FontSize:     18,
			BorderWidth:  1,
			MarginX:      20,
			MarginBottom: 20,
			NonLatinLift: intPtr(2),
		},
		Text: TextConfig{
			MaxCharsPerLine: 35,
			FontColor:       "white",
			BorderColor:     "black",
			ShadowColor:     "black@0.5",
			ShadowOffset:    2,
		},
		Audio: AudioConfig{
			SampleFormat:   "fltp",
			SampleRate:     48000,
			ChannelLayout:  "stereo",
			MusicVolume:    floatPtr(0.3),
			Codec:          "aac",
			BitrateKbps:    192,
			StitchOriginal: StitchOriginalMix,
		},
		Stitch: StitchConfig{
			VideoCodec:       "libx264",
			Preset:           "fast",
			CRF:              intPtr(18),
			PixelFormat:      "yuv420p",
			FPS:              30,
			AudioCodec:       "aac",
			AudioBitrateKbps: 192,
		},
		Output: OutputConfig{
			VideoCodec: "libx264",
			Preset:     "fast",
			CRF:        intPtr(18),
			Archive:    boolPtr(true),
		},
		Scratch: ScratchConfig{
			Root: "/tmp/clipforge",
		},
		Fetch: FetchConfig{
			Timeout:  40 * time.Second,
			MaxBytes: 512 << 20,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			HistoryDB:      "clipforge.db",
			RequestTimeout: 10 * time.Minute,
			MaxConcurrent:  2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Limits: LimitsConfig{
			MaxDurationSeconds: 120,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits or zeroes them.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.Fonts.Dir == "" {
		c.Fonts.Dir = d.Fonts.Dir
	}
	if len(c.Fonts.Files) == 0 {
		c.Fonts.Files = d.Fonts.Files
	}

	if c.Brand.Prefix == "" {
		c.Brand.Prefix = d.Brand.Prefix
	}
	if c.Brand.FontSize == 0 {
		c.Brand.FontSize = d.Brand.FontSize
	}
	if c.Brand.BorderWidth == 0 {
		c.Brand.BorderWidth = d.Brand.BorderWidth
	}
	if c.Brand.MarginX == 0 {
		c.Brand.MarginX = d.Brand.MarginX
	}
	if c.Brand.MarginBottom == 0 {
		c.Brand.MarginBottom = d.Brand.MarginBottom
	}
	if c.Brand.NonLatinLift == nil {
		c.Brand.NonLatinLift = intPtr(d.Brand.NonLatinLiftValue())
	}

	if c.Text.MaxCharsPerLine == 0 {
		c.Text.MaxCharsPerLine = d.Text.MaxCharsPerLine
	}
	if c.Text.FontColor == "" {
		c.Text.FontColor = d.Text.FontColor
	}
	if c.Text.BorderColor == "" {
		c.Text.BorderColor = d.Text.BorderColor
	}
	if c.Text.ShadowColor == "" {
		c.Text.ShadowColor = d.Text.ShadowColor
	}

	if c.Audio.SampleFormat == "" {
		c.Audio.SampleFormat = d.Audio.SampleFormat
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Audio.ChannelLayout == "" {
		c.Audio.ChannelLayout = d.Audio.ChannelLayout
	}
	if c.Audio.MusicVolume == nil {
		c.Audio.MusicVolume = floatPtr(d.Audio.MusicVolumeValue())
	}
	if c.Audio.Codec == "" {
		c.Audio.Codec = d.Audio.Codec
	}
	if c.Audio.BitrateKbps == 0 {
		c.Audio.BitrateKbps = d.Audio.BitrateKbps
	}
	if c.Audio.StitchOriginal == "" {
		c.Audio.StitchOriginal = d.Audio.StitchOriginal
	}

	if c.Stitch.VideoCodec == "" {
		c.Stitch.VideoCodec = d.Stitch.VideoCodec
	}
	if c.Stitch.Preset == "" {
		c.Stitch.Preset = d.Stitch.Preset
	}
	if c.Stitch.CRF == nil {
		c.Stitch.CRF = intPtr(*d.Stitch.CRF)
	}
	if c.Stitch.PixelFormat == "" {
		c.Stitch.PixelFormat = d.Stitch.PixelFormat
	}
	if c.Stitch.FPS == 0 {
		c.Stitch.FPS = d.Stitch.FPS
	}
	if c.Stitch.AudioCodec == "" {
		c.Stitch.AudioCodec = d.Stitch.AudioCodec
	}
	if c.Stitch.AudioBitrateKbps == 0 {
		c.Stitch.AudioBitrateKbps = d.Stitch.AudioBitrateKbps
	}

	if c.Output.VideoCodec == "" {
		c.Output.VideoCodec = d.Output.VideoCodec
	}
	if c.Output.Preset == "" {
		c.Output.Preset = d.Output.Preset
	}
	if c.Output.CRF == nil {
		c.Output.CRF = intPtr(*d.Output.CRF)
	}
	if c.Output.Archive == nil {
		c.Output.Archive = boolPtr(true)
	}

	if c.Scratch.Root == "" {
		c.Scratch.Root = d.Scratch.Root
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = d.Fetch.Timeout
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = d.Fetch.MaxBytes
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.HistoryDB == "" {
		c.Server.HistoryDB = d.Server.HistoryDB
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = d.Server.RequestTimeout
	}
	if c.Server.MaxConcurrent == 0 {
		c.Server.MaxConcurrent = d.Server.MaxConcurrent
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Limits.MaxDurationSeconds == 0 {
		c.Limits.MaxDurationSeconds = d.Limits.MaxDurationSeconds
	}
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

package compose

import (
	"clipforge/internal/audiomix"
	"clipforge/internal/config"
	"clipforge/internal/filtergraph"
	"clipforge/internal/layout"
)

// Style holds the configured look of a render.
type Style struct {
	MaxCharsPerLine int
	FontColor       string
	BorderColor     string
	ShadowColor     string
	ShadowOffset    int

	BrandPrefix      string
	BrandBorderWidth int
	Brand            layout.BrandOptions

	Audio audiomix.Options
	// MixOriginalWhenStitching keeps the scenes' own audio in the mix when a
	// track is added in stitch mode.
	MixOriginalWhenStitching bool
	Stitch                   filtergraph.ClipProfile
}

// DefaultStyle mirrors config.Default.
func DefaultStyle() Style {
	return StyleFromConfig(config.Default())
}

// StyleFromConfig extracts the render style from cfg.
func StyleFromConfig(cfg config.Config) Style {
	crf := 18
	if cfg.Stitch.CRF != nil {
		crf = *cfg.Stitch.CRF
	}
	return Style{
		MaxCharsPerLine: cfg.Text.MaxCharsPerLine,
		FontColor:       cfg.Text.FontColor,
		BorderColor:     cfg.Text.BorderColor,
		ShadowColor:     cfg.Text.ShadowColor,
		ShadowOffset:    cfg.Text.ShadowOffset,

		BrandPrefix:      cfg.Brand.Prefix,
		BrandBorderWidth: cfg.Brand.BorderWidth,
		Brand: layout.BrandOptions{
			FontSize:     cfg.Brand.FontSize,
			MarginX:      cfg.Brand.MarginX,
			MarginBottom: cfg.Brand.MarginBottom,
			NonLatinLift: cfg.Brand.NonLatinLiftValue(),
		},

		Audio: audiomix.Options{
			Format: filtergraph.AudioFormat{
				SampleFormat:  cfg.Audio.SampleFormat,
				SampleRate:    cfg.Audio.SampleRate,
				ChannelLayout: cfg.Audio.ChannelLayout,
			},
			MusicVolume:     cfg.Audio.MusicVolumeValue(),
			IncludeOriginal: true,
		},
		MixOriginalWhenStitching: cfg.Audio.StitchOriginal != config.StitchOriginalDrop,
		Stitch: filtergraph.ClipProfile{
			VideoCodec:       cfg.Stitch.VideoCodec,
			Preset:           cfg.Stitch.Preset,
			CRF:              crf,
			PixelFormat:      cfg.Stitch.PixelFormat,
			FPS:              cfg.Stitch.FPS,
			AudioCodec:       cfg.Stitch.AudioCodec,
			AudioBitrateKbps: cfg.Stitch.AudioBitrateKbps,
			SampleRate:       cfg.Audio.SampleRate,
			ChannelLayout:    cfg.Audio.ChannelLayout,
			Width:            cfg.Stitch.Width,
			Height:           cfg.Stitch.Height,
		},
	}
}

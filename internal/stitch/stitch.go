// Package stitch plans the normalization and joining of a fixed set of
// scene clips into one base clip.
package stitch

import (
	"clipforge/internal/errs"
	"clipforge/internal/filtergraph"
	"clipforge/internal/media"
)

// SceneCount is the number of clips stitch mode accepts.
const SceneCount = 3

// DefaultProfile is the target every scene is re-encoded to before joining.
func DefaultProfile() filtergraph.ClipProfile {
	return filtergraph.ClipProfile{
		VideoCodec:       "libx264",
		Preset:           "fast",
		CRF:              18,
		PixelFormat:      "yuv420p",
		FPS:              30,
		AudioCodec:       "aac",
		AudioBitrateKbps: 192,
		SampleRate:       48000,
		ChannelLayout:    "stereo",
	}
}

// Step normalizes one scene.
type Step struct {
	Index  int
	Params filtergraph.NormalizeClip
}

// ConcatPlan normalizes each scene and joins them in the given order.
type ConcatPlan struct {
	Steps []Step
	// Width, Height, HasAudio and DurationSeconds describe the joined clip.
	Width           int
	Height          int
	HasAudio        bool
	DurationSeconds float64
}

// Plan builds the concat plan for clips, which must be exactly SceneCount
// probed scenes in playback order.
func Plan(clips []media.Info, profile filtergraph.ClipProfile) (ConcatPlan, error) {
	if len(clips) != SceneCount {
		return ConcatPlan{}, errs.Invalid("clips", "stitch mode needs exactly %d clips, got %d", SceneCount, len(clips))
	}
	for i, c := range clips {
		if !c.HasVideo || c.Width <= 0 || c.Height <= 0 {
			return ConcatPlan{}, errs.Invalid("clips", "scene %d has no usable video stream", i+1)
		}
	}

	plan := ConcatPlan{
		Width:  clips[0].Width,
		Height: clips[0].Height,
	}
	if profile.Width > 0 && profile.Height > 0 {
		plan.Width, plan.Height = profile.Width, profile.Height
	}
	// yuv420p chroma subsampling needs even dimensions
	plan.Width, plan.Height = even(plan.Width), even(plan.Height)
	for _, c := range clips {
		plan.HasAudio = plan.HasAudio || c.HasAudio
		plan.DurationSeconds += c.DurationSeconds
	}

	// every scene is scaled and padded to one frame size so the joined
	// streams stay compatible
	profile.Width, profile.Height = plan.Width, plan.Height
	for i, c := range clips {
		plan.Steps = append(plan.Steps, Step{
			Index: i,
			Params: filtergraph.NormalizeClip{
				Profile:    profile,
				AddSilence: plan.HasAudio && !c.HasAudio,
			},
		})
	}
	return plan, nil
}

// Apply adds one normalize node per scene and a stream-copy concat node to
// b and returns the joined clip's label. inputs are the scene clip labels
// in the same order as the planned clips.
func (p ConcatPlan) Apply(b *filtergraph.Builder, inputs []filtergraph.Label) (filtergraph.Label, error) {
	if len(inputs) != len(p.Steps) {
		return "", errs.Invariant("concat plan has %d steps but %d inputs", len(p.Steps), len(inputs))
	}
	normalized := make([]filtergraph.Label, len(p.Steps))
	for _, s := range p.Steps {
		normalized[s.Index] = b.Add(s.Params, inputs[s.Index])
	}
	return b.Add(filtergraph.ConcatParams{StreamCopy: true}, normalized...), nil
}

func even(n int) int {
	if n < 2 {
		return 2
	}
	return n &^ 1
}

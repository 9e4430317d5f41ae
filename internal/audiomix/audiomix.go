// Package audiomix decides which audio sources reach the output and how
// they are combined.
package audiomix

import (
	"clipforge/internal/filtergraph"
)

// Source identifies one audio track.
type Source string

const (
	Original Source = "original"
	Dialogue Source = "dialogue"
	Music    Source = "music"
)

// Rule is how the present sources are combined.
type Rule string

const (
	// RuleCopy leaves the base clip's audio untouched, if it has any.
	RuleCopy Rule = "copy"
	// RuleIdentity normalizes a single source and passes it through.
	RuleIdentity Rule = "identity"
	// RuleMix mixes two or more normalized sources, longest wins.
	RuleMix Rule = "mix"
)

// DefaultMusicVolume attenuates music under the other sources.
const DefaultMusicVolume = 0.3

// DefaultFormat is the common format every source is converted to.
var DefaultFormat = filtergraph.AudioFormat{
	SampleFormat:  "fltp",
	SampleRate:    48000,
	ChannelLayout: "stereo",
}

// Base describes the probed base clip.
type Base struct {
	HasAudio        bool
	DurationSeconds float64
}

// Options tune planning.
type Options struct {
	Format      filtergraph.AudioFormat
	MusicVolume float64
	// IncludeOriginal keeps the base clip's own audio in the mix when it has
	// any.
	IncludeOriginal bool
}

// Entry is one present source with its normalization.
type Entry struct {
	Source Source
	Params filtergraph.NormalizeAudio
}

// MixPlan is the ordered set of present sources and how to combine them.
type MixPlan struct {
	Entries []Entry
	Rule    Rule
	// DurationSeconds caps the output at the base clip's duration when
	// positive.
	DurationSeconds float64
}

// Plan selects the present sources in the order original, dialogue, music.
func Plan(base Base, dialogue, music bool, opts Options) MixPlan {
	plan := MixPlan{Rule: RuleCopy}
	if base.DurationSeconds > 0 {
		plan.DurationSeconds = base.DurationSeconds
	}
	if !dialogue && !music {
		return plan
	}

	format := opts.Format
	if format == (filtergraph.AudioFormat{}) {
		format = DefaultFormat
	}

	if base.HasAudio && opts.IncludeOriginal {
		plan.Entries = append(plan.Entries, Entry{
			Source: Original,
			Params: filtergraph.NormalizeAudio{Format: format},
		})
	}
	if dialogue {
		plan.Entries = append(plan.Entries, Entry{
			Source: Dialogue,
			Params: filtergraph.NormalizeAudio{Format: format},
		})
	}
	if music {
		volume := opts.MusicVolume
		plan.Entries = append(plan.Entries, Entry{
			Source: Music,
			Params: filtergraph.NormalizeAudio{
				Format:      format,
				TrimSeconds: plan.DurationSeconds,
				Volume:      &volume,
			},
		})
	}

	switch len(plan.Entries) {
	case 0:
		plan.Rule = RuleCopy
	case 1:
		plan.Rule = RuleIdentity
	default:
		plan.Rule = RuleMix
	}
	return plan
}

// Has reports whether s is one of the planned sources.
func (p MixPlan) Has(s Source) bool {
	for _, e := range p.Entries {
		if e.Source == s {
			return true
		}
	}
	return false
}

// Refs are the graph labels the sources are read from. Base is a clip label.
type Refs struct {
	Base     filtergraph.Label
	Dialogue filtergraph.Label
	Music    filtergraph.Label
}

// Apply adds the plan's nodes to b and returns the terminal audio label.
// copyAudio is true when no node was added and the label is the base clip's
// own, possibly absent, audio stream.
func (p MixPlan) Apply(b *filtergraph.Builder, refs Refs) (label filtergraph.Label, copyAudio bool) {
	if p.Rule == RuleCopy || len(p.Entries) == 0 {
		return refs.Base.Audio(), true
	}

	normalized := make([]filtergraph.Label, 0, len(p.Entries))
	for _, e := range p.Entries {
		normalized = append(normalized, b.Add(e.Params, refs.source(e.Source)))
	}

	if p.Rule == RuleIdentity {
		return b.Add(filtergraph.Passthrough{Of: filtergraph.MediaAudio}, normalized[0]), false
	}
	return b.Add(filtergraph.MixParams{Duration: "longest"}, normalized...), false
}

func (r Refs) source(s Source) filtergraph.Label {
	switch s {
	case Dialogue:
		return r.Dialogue
	case Music:
		return r.Music
	default:
		return r.Base.Audio()
	}
}

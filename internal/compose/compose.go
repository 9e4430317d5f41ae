package compose

import (
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/audiomix"
	"clipforge/internal/errs"
	"clipforge/internal/filtergraph"
	"clipforge/internal/layout"
	"clipforge/internal/media"
	"clipforge/internal/script"
	"clipforge/internal/stitch"
)

// Input roles declared on the graph. Scene clips are "scene1".."scene3".
const (
	RoleClip     = "clip"
	RoleDialogue = "dialogue"
	RoleMusic    = "music"
)

// SceneRole returns the role of stitch scene i (zero-based).
func SceneRole(i int) string {
	return "scene" + strconv.Itoa(i+1)
}

// ClipRoles returns the input roles of req's clips in order.
func ClipRoles(req Request) []string {
	if req.Mode() == ModeSingle {
		return []string{RoleClip}
	}
	roles := make([]string, len(req.Clips))
	for i := range roles {
		roles[i] = SceneRole(i)
	}
	return roles
}

const centeredX = "(w-text_w)/2"

// Facts are the probed properties of the request's clips, in request order.
type Facts struct {
	Clips []media.Info
}

// Env carries the process-wide collaborators of the planner.
type Env struct {
	Resolver *script.Resolver
	// Measurer sizes the brand prefix; nil falls back to an estimate.
	Measurer layout.Measurer
	Style    Style
}

// Compose plans the processing graph for req. It performs no I/O.
func Compose(req Request, facts Facts, env Env) (*filtergraph.Graph, error) {
	if err := validateShape(req); err != nil {
		return nil, err
	}
	if env.Resolver == nil {
		return nil, fmt.Errorf("compose: no font resolver")
	}
	if len(facts.Clips) != len(req.Clips) {
		return nil, errs.Invalid("clips", "probed %d clips for %d requested", len(facts.Clips), len(req.Clips))
	}

	style := env.Style
	b := filtergraph.NewBuilder()

	roles := ClipRoles(req)
	clipInputs := make([]filtergraph.Label, len(roles))
	for i, role := range roles {
		clipInputs[i] = b.Input(role, filtergraph.MediaClip)
	}
	var refs audiomix.Refs
	if req.HasDialogue() {
		refs.Dialogue = b.Input(RoleDialogue, filtergraph.MediaAudio)
	}
	if req.HasMusic() {
		refs.Music = b.Input(RoleMusic, filtergraph.MediaAudio)
	}

	base, err := planBase(b, req, facts, clipInputs, style.Stitch)
	if err != nil {
		return nil, err
	}
	refs.Base = base.label

	mixOpts := style.Audio
	if req.MusicVolume != nil {
		mixOpts.MusicVolume = *req.MusicVolume
	}
	mixOpts.IncludeOriginal = req.Mode() == ModeSingle || style.MixOriginalWhenStitching
	mix := audiomix.Plan(
		audiomix.Base{HasAudio: base.hasAudio, DurationSeconds: base.duration},
		req.HasDialogue(), req.HasMusic(), mixOpts,
	)
	audio, copyAudio := mix.Apply(b, refs)

	video := planText(b, base.label.Video(), base.geom, req, env)
	video = planBranding(b, video, base.geom, req, env)

	out := filtergraph.Outputs{
		Video:     video,
		Audio:     audio,
		AudioCopy: copyAudio,
	}
	if !copyAudio {
		out.DurationSeconds = mix.DurationSeconds
	}
	return b.Build(out)
}

type baseClip struct {
	label    filtergraph.Label
	geom     layout.Geometry
	hasAudio bool
	duration float64
}

func planBase(b *filtergraph.Builder, req Request, facts Facts, inputs []filtergraph.Label, profile filtergraph.ClipProfile) (baseClip, error) {
	if req.Mode() == ModeStitch {
		plan, err := stitch.Plan(facts.Clips, profile)
		if err != nil {
			return baseClip{}, err
		}
		joined, err := plan.Apply(b, inputs)
		if err != nil {
			return baseClip{}, err
		}
		return baseClip{
			label:    joined,
			geom:     layout.Geometry{Width: plan.Width, Height: plan.Height},
			hasAudio: plan.HasAudio,
			duration: plan.DurationSeconds,
		}, nil
	}

	info := facts.Clips[0]
	geom := layout.Geometry{Width: info.Width, Height: info.Height}
	if !info.HasVideo || !geom.Valid() {
		return baseClip{}, errs.Invalid("clips", "cannot determine frame geometry of the source clip")
	}
	base := baseClip{
		label:    inputs[0],
		geom:     geom,
		hasAudio: info.HasAudio,
		duration: info.DurationSeconds,
	}
	if limit := float64(req.MaxDurationSeconds); limit > 0 {
		base.label = b.Add(filtergraph.TrimParams{Seconds: limit, StreamCopy: true}, base.label)
		if base.duration <= 0 || limit < base.duration {
			base.duration = limit
		}
	}
	return base, nil
}

func planText(b *filtergraph.Builder, cur filtergraph.Label, geom layout.Geometry, req Request, env Env) filtergraph.Label {
	style := env.Style
	res := layout.Plan(geom, req.TopText, req.BottomText, env.Resolver, style.MaxCharsPerLine)
	for _, block := range []layout.TextBlock{res.Top, res.Bottom} {
		for i, line := range block.Lines {
			cur = b.Add(filtergraph.TextParams{
				Text:        line,
				FontFile:    block.Font.Path,
				FontSize:    block.FontSize,
				FontColor:   style.FontColor,
				BorderColor: style.BorderColor,
				BorderWidth: block.StrokeWidth,
				ShadowColor: style.ShadowColor,
				ShadowX:     style.ShadowOffset,
				ShadowY:     style.ShadowOffset,
				X:           centeredX,
				Y:           strconv.Itoa(block.LineY(i)),
			}, cur)
		}
	}
	return cur
}

func planBranding(b *filtergraph.Builder, cur filtergraph.Label, geom layout.Geometry, req Request, env Env) filtergraph.Label {
	style := env.Style
	// the brand is a single line
	project := strings.Join(strings.Fields(req.ProjectName), " ")
	if !req.Branding {
		return b.Add(filtergraph.Passthrough{Of: filtergraph.MediaVideo}, cur)
	}

	english := env.Resolver.English()
	projectFont := env.Resolver.Resolve(project)

	size := style.Brand.FontSize
	if size <= 0 {
		size = layout.DefaultBrandOptions().FontSize
	}
	var width int
	if env.Measurer != nil {
		width = env.Measurer.TextWidth(style.BrandPrefix, english.Path, size)
	} else {
		width = layout.EstimateWidth(style.BrandPrefix, size)
	}
	place := layout.PlaceBrand(geom, width, projectFont.Script, style.Brand)

	zero := 0
	brandText := func(text, font string, x, y int) filtergraph.TextParams {
		return filtergraph.TextParams{
			Text:        text,
			FontFile:    font,
			FontSize:    place.FontSize,
			FontColor:   style.FontColor,
			BorderColor: style.BorderColor,
			BorderWidth: style.BrandBorderWidth,
			ShadowColor: style.ShadowColor,
			ShadowX:     style.ShadowOffset,
			ShadowY:     style.ShadowOffset,
			X:           strconv.Itoa(x),
			Y:           strconv.Itoa(y),
			LineSpacing: &zero,
		}
	}

	cur = b.Add(brandText(style.BrandPrefix, english.Path, place.PrefixX, place.PrefixY), cur)
	if project == "" {
		return b.Add(filtergraph.Passthrough{Of: filtergraph.MediaVideo}, cur)
	}
	return b.Add(brandText(project, projectFont.Path, place.ProjectX, place.ProjectY), cur)
}

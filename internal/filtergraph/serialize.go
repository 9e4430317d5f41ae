package filtergraph

import (
	"fmt"
	"strconv"
	"strings"

	"clipforge/internal/errs"
)

// RefResolver maps a label that is not produced inside the filter graph,
// such as "src0:v", to the engine's stream specifier, such as "0:v".
type RefResolver func(Label) (string, error)

// Serialize renders stream nodes as an ffmpeg filter_complex description.
// Node outputs are linked by their own labels; every other reference goes
// through resolve. Clip nodes cannot be serialized.
func Serialize(nodes []Node, resolve RefResolver) (string, error) {
	local := make(map[Label]bool, len(nodes))
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !n.Media().Stream() {
			return "", errs.Invariant("%s node %s cannot run inside a filter graph", n.Kind(), n.Label)
		}
		var sb strings.Builder
		for _, in := range n.Inputs {
			spec := string(in)
			if !local[in] {
				if resolve == nil {
					return "", errs.Invariant("no resolver for external reference %q", in)
				}
				s, err := resolve(in)
				if err != nil {
					return "", err
				}
				spec = s
			}
			sb.WriteString("[" + spec + "]")
		}
		filter, err := filterFor(n)
		if err != nil {
			return "", err
		}
		sb.WriteString(filter)
		sb.WriteString("[" + string(n.Label) + "]")
		parts = append(parts, sb.String())
		local[n.Label] = true
	}
	return strings.Join(parts, ";"), nil
}

func filterFor(n Node) (string, error) {
	switch p := n.Params.(type) {
	case TextParams:
		return drawText(p), nil
	case NormalizeAudio:
		return normalizeAudio(p), nil
	case MixParams:
		duration := p.Duration
		if duration == "" {
			duration = "longest"
		}
		// normalize=0 keeps every input at unit gain instead of 1/N
		return fmt.Sprintf("amix=inputs=%d:duration=%s:dropout_transition=%s:normalize=0",
			len(n.Inputs), duration, formatFloat(p.DropoutTransition)), nil
	case Passthrough:
		if p.Of == MediaAudio {
			return "anull", nil
		}
		return "null", nil
	default:
		return "", errs.Invariant("node %s has no filter for %T", n.Label, n.Params)
	}
}

func drawText(p TextParams) string {
	var values []string
	if strings.TrimSpace(p.FontFile) != "" {
		values = append(values, "fontfile="+quote(EscapePath(p.FontFile)))
	}
	values = append(values,
		"text="+quote(Escape(p.Text)),
		"expansion=none",
		"fontcolor="+fallback(p.FontColor, "white"),
		"fontsize="+strconv.Itoa(p.FontSize),
		"bordercolor="+fallback(p.BorderColor, "black"),
		"borderw="+strconv.Itoa(p.BorderWidth),
	)
	if p.ShadowColor != "" {
		values = append(values,
			"shadowcolor="+p.ShadowColor,
			"shadowx="+strconv.Itoa(p.ShadowX),
			"shadowy="+strconv.Itoa(p.ShadowY),
		)
	}
	values = append(values,
		"x="+fallback(p.X, "0"),
		"y="+fallback(p.Y, "0"),
	)
	if p.LineSpacing != nil {
		values = append(values, "line_spacing="+strconv.Itoa(*p.LineSpacing))
	}
	return "drawtext=" + strings.Join(values, ":")
}

func normalizeAudio(p NormalizeAudio) string {
	var filters []string
	if p.TrimSeconds > 0 {
		filters = append(filters, "atrim=duration="+formatFloat(p.TrimSeconds))
	}
	if p.Volume != nil {
		filters = append(filters, "volume="+formatFloat(*p.Volume))
	}

	var format []string
	if p.Format.SampleFormat != "" {
		format = append(format, "sample_fmts="+p.Format.SampleFormat)
	}
	if p.Format.SampleRate > 0 {
		format = append(format, "sample_rates="+strconv.Itoa(p.Format.SampleRate))
	}
	if p.Format.ChannelLayout != "" {
		format = append(format, "channel_layouts="+p.Format.ChannelLayout)
	}
	if len(format) > 0 {
		filters = append(filters, "aformat="+strings.Join(format, ":"))
	}

	if len(filters) == 0 {
		return "anull"
	}
	return strings.Join(filters, ",")
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

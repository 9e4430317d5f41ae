package filtergraph

import (
	"fmt"
	"strconv"

	"clipforge/internal/errs"
)

// Builder allocates labels from a monotonic counter and records nodes in the
// order they are added, so a node can only consume labels that already
// exist. The first error is kept and returned by Build.
type Builder struct {
	next   int
	inputs []Input
	nodes  []Node
	media  map[Label]Media
	err    error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{media: make(map[Label]Media)}
}

// Input declares an external input and returns its label. Inputs are
// numbered in declaration order: src0, src1, ...
func (b *Builder) Input(role string, m Media) Label {
	l := Label("src" + strconv.Itoa(len(b.inputs)))
	b.inputs = append(b.inputs, Input{Label: l, Role: role, Media: m})
	b.media[l] = m
	return l
}

// Add appends a node fed by inputs and returns its freshly allocated label.
func (b *Builder) Add(p Params, inputs ...Label) Label {
	b.next++
	l := Label(labelPrefix(p.Media()) + strconv.Itoa(b.next))
	if b.err == nil {
		for _, in := range inputs {
			if _, ok := b.media[in.Base()]; !ok {
				b.err = errs.Invariant("node %s (%s) consumes unknown label %q", l, p.Kind(), in)
				break
			}
		}
	}
	b.nodes = append(b.nodes, Node{Label: l, Inputs: append([]Label(nil), inputs...), Params: p})
	b.media[l] = p.Media()
	return l
}

// Err returns the first error recorded while adding nodes.
func (b *Builder) Err() error {
	return b.err
}

// Len returns the number of nodes added so far.
func (b *Builder) Len() int {
	return len(b.nodes)
}

// Build declares the graph outputs and validates the result.
func (b *Builder) Build(out Outputs) (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	g := &Graph{
		Inputs:  append([]Input(nil), b.inputs...),
		Nodes:   append([]Node(nil), b.nodes...),
		Outputs: out,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func labelPrefix(m Media) string {
	switch m {
	case MediaClip:
		return "c"
	case MediaVideo:
		return "v"
	case MediaAudio:
		return "a"
	default:
		return "n"
	}
}

// Validate checks the structural invariants of g: unique labels, no forward
// or dangling references, media-compatible wiring and a defined video
// terminal. Violations are planner bugs and wrap errs.ErrInvariant.
func (g *Graph) Validate() error {
	media := make(map[Label]Media, len(g.Inputs)+len(g.Nodes))
	for _, in := range g.Inputs {
		if in.Label == "" {
			return errs.Invariant("input %q has empty label", in.Role)
		}
		if _, dup := media[in.Label]; dup {
			return errs.Invariant("duplicate label %q", in.Label)
		}
		if in.Media != MediaClip && in.Media != MediaAudio {
			return errs.Invariant("input %s has unsupported media %q", in.Label, in.Media)
		}
		media[in.Label] = in.Media
	}

	for _, n := range g.Nodes {
		if n.Params == nil {
			return errs.Invariant("node %q has no parameters", n.Label)
		}
		if n.Label == "" {
			return errs.Invariant("%s node has empty label", n.Kind())
		}
		if _, dup := media[n.Label]; dup {
			return errs.Invariant("duplicate label %q", n.Label)
		}
		resolved := make([]Media, 0, len(n.Inputs))
		for _, in := range n.Inputs {
			m, err := resolveRef(media, in)
			if err != nil {
				return fmt.Errorf("node %s: %w", n.Label, err)
			}
			resolved = append(resolved, m)
		}
		if err := checkArity(n, resolved); err != nil {
			return err
		}
		media[n.Label] = n.Media()
	}

	out := g.Outputs
	if out.Video == "" {
		return errs.Invariant("graph has no video output")
	}
	if m, err := resolveRef(media, out.Video); err != nil {
		return fmt.Errorf("video output: %w", err)
	} else if m != MediaVideo {
		return errs.Invariant("video output %q carries %s", out.Video, m)
	}
	if out.Audio != "" {
		if m, err := resolveRef(media, out.Audio); err != nil {
			return fmt.Errorf("audio output: %w", err)
		} else if m != MediaAudio {
			return errs.Invariant("audio output %q carries %s", out.Audio, m)
		}
		if out.AudioCopy && out.Audio.Selector() != MediaAudio {
			return errs.Invariant("copied audio output %q is not a clip stream", out.Audio)
		}
	}
	return nil
}

// resolveRef returns the media a reference delivers, given the labels
// produced so far.
func resolveRef(media map[Label]Media, ref Label) (Media, error) {
	base := ref.Base()
	m, ok := media[base]
	if !ok {
		return "", errs.Invariant("reference to undefined label %q", ref)
	}
	sel := ref.Selector()
	switch {
	case sel == "":
		return m, nil
	case m == MediaClip:
		return sel, nil
	case m == MediaAudio && sel == MediaAudio:
		return MediaAudio, nil
	default:
		return "", errs.Invariant("stream selector on %s label %q", m, ref)
	}
}

func checkArity(n Node, inputs []Media) error {
	want := func(count int, m Media) error {
		if count > 0 && len(inputs) != count {
			return errs.Invariant("%s node %s wants %d input(s), has %d", n.Kind(), n.Label, count, len(inputs))
		}
		if count < 0 && len(inputs) < -count {
			return errs.Invariant("%s node %s wants at least %d inputs, has %d", n.Kind(), n.Label, -count, len(inputs))
		}
		for i, got := range inputs {
			if got != m {
				return errs.Invariant("%s node %s input %d carries %s, want %s", n.Kind(), n.Label, i, got, m)
			}
		}
		return nil
	}

	switch p := n.Params.(type) {
	case TextParams:
		return want(1, MediaVideo)
	case NormalizeAudio:
		return want(1, MediaAudio)
	case MixParams:
		return want(-2, MediaAudio)
	case Passthrough:
		if !p.Of.Stream() {
			return errs.Invariant("passthrough node %s has non-stream media %q", n.Label, p.Of)
		}
		return want(1, p.Of)
	case NormalizeClip, TrimParams:
		return want(1, MediaClip)
	case ConcatParams:
		return want(-2, MediaClip)
	default:
		return errs.Invariant("node %s has unsupported parameters %T", n.Label, n.Params)
	}
}

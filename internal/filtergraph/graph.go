// Package filtergraph models a media processing graph as an ordered list of
// labeled nodes with typed parameters. The graph is engine-agnostic until it
// is serialized.
package filtergraph

import "strings"

// Kind is the operation a node performs.
type Kind string

const (
	KindOverlayText Kind = "overlay-text"
	KindConcat      Kind = "concat"
	KindNormalize   Kind = "format-normalize"
	KindMix         Kind = "mix"
	KindPassthrough Kind = "passthrough"
	KindTrim        Kind = "trim"
)

// Media is what a label carries.
type Media string

const (
	// MediaClip is a whole container file with a video and possibly an
	// audio stream. Clip nodes run as separate engine jobs.
	MediaClip  Media = "clip"
	MediaVideo Media = "video"
	MediaAudio Media = "audio"
)

// Stream reports whether m is a single stream handled inside one filter graph.
func (m Media) Stream() bool {
	return m == MediaVideo || m == MediaAudio
}

// Label names a node output or a declared external input. A clip label may
// be narrowed to one of its streams with Video or Audio.
type Label string

const (
	videoSuffix = ":v"
	audioSuffix = ":a"
)

// Video selects the video stream of a clip label.
func (l Label) Video() Label { return l.Base() + videoSuffix }

// Audio selects the audio stream of a clip label.
func (l Label) Audio() Label { return l.Base() + audioSuffix }

// Base strips any stream selector.
func (l Label) Base() Label {
	s := string(l)
	if strings.HasSuffix(s, videoSuffix) || strings.HasSuffix(s, audioSuffix) {
		return Label(s[:len(s)-2])
	}
	return l
}

// Selector returns the stream media selected by l, or "" when l is unnarrowed.
func (l Label) Selector() Media {
	switch {
	case strings.HasSuffix(string(l), videoSuffix):
		return MediaVideo
	case strings.HasSuffix(string(l), audioSuffix):
		return MediaAudio
	default:
		return ""
	}
}

// Input is a declared external input such as a fetched clip or audio track.
type Input struct {
	Label Label
	Role  string
	Media Media
}

// Node is one operation in the graph.
type Node struct {
	Label  Label
	Inputs []Label
	Params Params
}

// Kind returns the operation of n.
func (n Node) Kind() Kind { return n.Params.Kind() }

// Media returns what n produces.
func (n Node) Media() Media { return n.Params.Media() }

// Outputs are the declared terminals of a graph.
type Outputs struct {
	Video Label
	// Audio is empty when the output has no audio.
	Audio Label
	// AudioCopy marks Audio as an unprocessed clip stream that may not
	// exist. The engine maps it optionally and copies it without re-encoding.
	AudioCopy bool
	// DurationSeconds clamps the output when positive.
	DurationSeconds float64
}

// Graph is a validated processing graph.
type Graph struct {
	Inputs  []Input
	Nodes   []Node
	Outputs Outputs
}

// Input returns the declared input with label l.
func (g *Graph) Input(l Label) (Input, bool) {
	for _, in := range g.Inputs {
		if in.Label == l.Base() {
			return in, true
		}
	}
	return Input{}, false
}

// Node returns the node producing l.
func (g *Graph) Node(l Label) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Label == l.Base() {
			return n, true
		}
	}
	return Node{}, false
}

// NodesOf returns the nodes of kind k in graph order.
func (g *Graph) NodesOf(k Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind() == k {
			out = append(out, n)
		}
	}
	return out
}

// ClipNodes returns the nodes that produce whole clips, in graph order.
func (g *Graph) ClipNodes() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Media() == MediaClip {
			out = append(out, n)
		}
	}
	return out
}

// StreamNodes returns the nodes that run inside the final filter graph.
func (g *Graph) StreamNodes() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Media().Stream() {
			out = append(out, n)
		}
	}
	return out
}

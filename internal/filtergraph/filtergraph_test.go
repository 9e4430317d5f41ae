package filtergraph

import (
	"errors"
	"strings"
	"testing"
	"testing/quick"

	"clipforge/internal/errs"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"Don't Stop", `Don\'t Stop`},
		{"a:b,c;d", `a\:b\,c\;d`},
		{"[x]", `\[x\]`},
		{`back\slash`, `back\\slash`},
		{`\:`, `\\\:`},
		{"two\nlines", "two\nlines"},
		{"crlf\r\nend", "crlf\nend"},
		{"old\rmac", "old\nmac"},
		{"你好: 世界", `你好\: 世界`},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	samples := []string{
		"", `\n`, `\\`, "'''", "50% off: [today], only;",
		"literal \\n and real\nnewline", "ᜋᜑᜎ [tagalog]",
	}
	for _, s := range samples {
		got, err := Unescape(Escape(s))
		if err != nil {
			t.Fatalf("Unescape(Escape(%q)) error: %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip of %q = %q", s, got)
		}
	}

	property := func(s string) bool {
		s = strings.ReplaceAll(s, "\r", "")
		got, err := Unescape(Escape(s))
		return err == nil && got == s
	}
	if err := quick.Check(property, nil); err != nil {
		t.Fatal(err)
	}
}

func TestUnescapeRejectsBareMetachars(t *testing.T) {
	for _, s := range []string{"a:b", "x'", `trailing\`} {
		if _, err := Unescape(s); err == nil {
			t.Errorf("Unescape(%q) should fail", s)
		}
	}
}

func TestUnescapeDropsBackslashBeforeAnyCharacter(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`acme\ncorp`, "acmencorp"},
		{"acme\ncorp", "acme\ncorp"},
		{`\\\:`, `\:`},
		{`\é`, "é"},
	}
	for _, tt := range tests {
		got, err := Unescape(tt.in)
		if err != nil {
			t.Fatalf("Unescape(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuilderAllocatesUniqueLabels(t *testing.T) {
	b := NewBuilder()
	clip := b.Input("clip", MediaClip)
	music := b.Input("music", MediaAudio)

	v1 := b.Add(TextParams{Text: "one"}, clip.Video())
	v2 := b.Add(TextParams{Text: "two"}, v1)
	a1 := b.Add(NormalizeAudio{}, clip.Audio())
	a2 := b.Add(NormalizeAudio{}, music)
	mix := b.Add(MixParams{}, a1, a2)
	out := b.Add(Passthrough{Of: MediaVideo}, v2)

	g, err := b.Build(Outputs{Video: out, Audio: mix})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	seen := map[Label]bool{}
	for _, n := range g.Nodes {
		if seen[n.Label] {
			t.Fatalf("label %q reused", n.Label)
		}
		seen[n.Label] = true
	}
	if len(seen) != len(g.Nodes) {
		t.Fatalf("distinct labels %d, nodes %d", len(seen), len(g.Nodes))
	}
	if clip != "src0" || music != "src1" {
		t.Fatalf("inputs = %q, %q", clip, music)
	}
	if v1 != "v1" || mix != "a5" || out != "v6" {
		t.Fatalf("labels = %q %q %q", v1, mix, out)
	}
}

func TestBuilderRejectsUnknownReference(t *testing.T) {
	b := NewBuilder()
	b.Input("clip", MediaClip)
	b.Add(TextParams{}, "v99")
	_, err := b.Build(Outputs{Video: "v1"})
	if !errors.Is(err, errs.ErrInvariant) {
		t.Fatalf("err = %v, want invariant", err)
	}
}

func TestValidate(t *testing.T) {
	in := []Input{{Label: "src0", Role: "clip", Media: MediaClip}}
	tests := []struct {
		name  string
		graph Graph
	}{
		{
			name: "forward reference",
			graph: Graph{Inputs: in, Nodes: []Node{
				{Label: "v1", Inputs: []Label{"v2"}, Params: TextParams{}},
				{Label: "v2", Inputs: []Label{"src0:v"}, Params: TextParams{}},
			}, Outputs: Outputs{Video: "v2"}},
		},
		{
			name: "duplicate label",
			graph: Graph{Inputs: in, Nodes: []Node{
				{Label: "v1", Inputs: []Label{"src0:v"}, Params: TextParams{}},
				{Label: "v1", Inputs: []Label{"v1"}, Params: TextParams{}},
			}, Outputs: Outputs{Video: "v1"}},
		},
		{
			name: "self reference",
			graph: Graph{Inputs: in, Nodes: []Node{
				{Label: "v1", Inputs: []Label{"v1"}, Params: TextParams{}},
			}, Outputs: Outputs{Video: "v1"}},
		},
		{
			name:  "empty video output",
			graph: Graph{Inputs: in},
		},
		{
			name: "audio into overlay",
			graph: Graph{Inputs: in, Nodes: []Node{
				{Label: "v1", Inputs: []Label{"src0:a"}, Params: TextParams{}},
			}, Outputs: Outputs{Video: "v1"}},
		},
		{
			name: "single input mix",
			graph: Graph{Inputs: in, Nodes: []Node{
				{Label: "a1", Inputs: []Label{"src0:a"}, Params: MixParams{}},
			}, Outputs: Outputs{Video: "src0:v", Audio: "a1"}},
		},
		{
			name: "selector on stream node",
			graph: Graph{Inputs: in, Nodes: []Node{
				{Label: "v1", Inputs: []Label{"src0:v"}, Params: TextParams{}},
			}, Outputs: Outputs{Video: "v1:v"}},
		},
		{
			name: "copied audio from node",
			graph: Graph{Inputs: in, Nodes: []Node{
				{Label: "a1", Inputs: []Label{"src0:a"}, Params: Passthrough{Of: MediaAudio}},
			}, Outputs: Outputs{Video: "src0:v", Audio: "a1", AudioCopy: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.graph.Validate()
			if !errors.Is(err, errs.ErrInvariant) {
				t.Fatalf("Validate() = %v, want invariant violation", err)
			}
		})
	}
}

func TestSerialize(t *testing.T) {
	b := NewBuilder()
	clip := b.Input("clip", MediaClip)
	music := b.Input("music", MediaAudio)
	spacing := 0
	v := b.Add(TextParams{
		Text:        "It's 5:00, [go]",
		FontFile:    "/fonts/Noto Sans.ttf",
		FontSize:    42,
		BorderWidth: 4,
		ShadowColor: "black@0.5",
		ShadowX:     2,
		ShadowY:     2,
		X:           "(w-text_w)/2",
		Y:           "43",
		LineSpacing: &spacing,
	}, clip.Video())
	vol := 0.3
	orig := b.Add(NormalizeAudio{Format: AudioFormat{"fltp", 48000, "stereo"}}, clip.Audio())
	msc := b.Add(NormalizeAudio{Format: AudioFormat{"fltp", 48000, "stereo"}, TrimSeconds: 12.5, Volume: &vol}, music)
	mix := b.Add(MixParams{Duration: "longest"}, orig, msc)

	g, err := b.Build(Outputs{Video: v, Audio: mix})
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	resolve := func(l Label) (string, error) {
		switch l {
		case "src0:v":
			return "0:v", nil
		case "src0:a":
			return "0:a", nil
		case "src1":
			return "1:a", nil
		}
		return "", errors.New("unexpected " + string(l))
	}
	got, err := Serialize(g.StreamNodes(), resolve)
	if err != nil {
		t.Fatalf("Serialize error: %v", err)
	}

	parts := strings.Split(got, ";")
	if len(parts) != 4 {
		t.Fatalf("expected 4 chains, got %d: %s", len(parts), got)
	}
	expectations := []string{
		`[0:v]drawtext=fontfile='/fonts/Noto Sans.ttf':text='It\'\''s 5\:00\, \[go\]':expansion=none`,
		"fontsize=42",
		"shadowcolor=black@0.5:shadowx=2:shadowy=2:x=(w-text_w)/2:y=43:line_spacing=0[v1]",
		"[0:a]aformat=sample_fmts=fltp:sample_rates=48000:channel_layouts=stereo[a2]",
		"[1:a]atrim=duration=12.5,volume=0.3,aformat=sample_fmts=fltp:sample_rates=48000:channel_layouts=stereo[a3]",
		"[a2][a3]amix=inputs=2:duration=longest:dropout_transition=0:normalize=0[a4]",
	}
	for _, want := range expectations {
		if !strings.Contains(got, want) {
			t.Fatalf("expected filter graph to contain %q\ngraph: %s", want, got)
		}
	}
}

func TestSerializeRejectsClipNodes(t *testing.T) {
	nodes := []Node{{Label: "c1", Inputs: []Label{"src0"}, Params: TrimParams{Seconds: 3}}}
	if _, err := Serialize(nodes, nil); !errors.Is(err, errs.ErrInvariant) {
		t.Fatalf("err = %v, want invariant", err)
	}
}

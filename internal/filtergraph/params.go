package filtergraph

// Params are the typed parameters of a node. The concrete type fixes the
// node's kind and output media.
type Params interface {
	Kind() Kind
	Media() Media
}

// TextParams draws one line of text onto a video stream. Text is raw; it is
// escaped once when serialized.
type TextParams struct {
	Text        string
	FontFile    string
	FontSize    int
	FontColor   string
	BorderColor string
	BorderWidth int
	ShadowColor string
	ShadowX     int
	ShadowY     int
	X           string
	Y           string
	// LineSpacing is emitted only when set.
	LineSpacing *int
}

func (TextParams) Kind() Kind   { return KindOverlayText }
func (TextParams) Media() Media { return MediaVideo }

// AudioFormat is a common sample format, rate and channel layout.
type AudioFormat struct {
	SampleFormat  string
	SampleRate    int
	ChannelLayout string
}

// NormalizeAudio converts one audio stream to Format. TrimSeconds and Volume
// apply first, in that order, when set.
type NormalizeAudio struct {
	Format      AudioFormat
	TrimSeconds float64
	Volume      *float64
}

func (NormalizeAudio) Kind() Kind   { return KindNormalize }
func (NormalizeAudio) Media() Media { return MediaAudio }

// MixParams combines two or more audio streams.
type MixParams struct {
	// Duration is the amix duration policy, e.g. "longest".
	Duration          string
	DropoutTransition float64
}

func (MixParams) Kind() Kind   { return KindMix }
func (MixParams) Media() Media { return MediaAudio }

// Passthrough forwards one stream unchanged.
type Passthrough struct {
	Of Media
}

func (Passthrough) Kind() Kind     { return KindPassthrough }
func (p Passthrough) Media() Media { return p.Of }

// ClipProfile is the encoding target every stitched clip is re-encoded to.
type ClipProfile struct {
	VideoCodec       string
	Preset           string
	CRF              int
	PixelFormat      string
	FPS              int
	AudioCodec       string
	AudioBitrateKbps int
	SampleRate       int
	ChannelLayout    string
	// Width and Height scale and pad the clip when both are positive.
	Width  int
	Height int
}

// NormalizeClip re-encodes a whole clip to Profile.
type NormalizeClip struct {
	Profile ClipProfile
	// AddSilence gives a clip without audio a silent track so it stays
	// stream-compatible with its siblings.
	AddSilence bool
}

func (NormalizeClip) Kind() Kind   { return KindNormalize }
func (NormalizeClip) Media() Media { return MediaClip }

// ConcatParams joins clips in input order.
type ConcatParams struct {
	StreamCopy bool
}

func (ConcatParams) Kind() Kind   { return KindConcat }
func (ConcatParams) Media() Media { return MediaClip }

// TrimParams caps a clip's duration.
type TrimParams struct {
	Seconds    float64
	StreamCopy bool
}

func (TrimParams) Kind() Kind   { return KindTrim }
func (TrimParams) Media() Media { return MediaClip }

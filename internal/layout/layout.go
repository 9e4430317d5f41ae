package layout

import (
	"strings"

	"clipforge/internal/script"
)

const (
	minFontSize    = 18
	minStrokeWidth = 2
	baseDivisor    = 14
)

// Geometry is the pixel size of the working video.
type Geometry struct {
	Width  int
	Height int
}

// Valid reports whether both dimensions are positive.
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0
}

// Anchor selects how a block is placed vertically.
type Anchor string

const (
	AnchorTop    Anchor = "top"
	AnchorBottom Anchor = "bottom"
)

// Metrics are the font metrics shared by the top and bottom blocks.
type Metrics struct {
	FontSize    int
	StrokeWidth int
	LineHeight  int
}

// Size derives font metrics from the frame height and the line count of the
// taller block.
func Size(height, maxLines int) Metrics {
	if maxLines < 1 {
		maxLines = 1
	}
	fontSize := height / (baseDivisor + 2*(maxLines-1))
	if fontSize < minFontSize {
		fontSize = minFontSize
	}
	stroke := fontSize / 10
	if stroke < minStrokeWidth {
		stroke = minStrokeWidth
	}
	return Metrics{
		FontSize:    fontSize,
		StrokeWidth: stroke,
		LineHeight:  fontSize * 13 / 10,
	}
}

// TextBlock is one wrapped, sized and anchored run of meme text.
type TextBlock struct {
	RawText     string
	Font        script.FontAsset
	Lines       []string
	FontSize    int
	StrokeWidth int
	LineHeight  int
	Anchor      Anchor
	// AnchorY is the y of the first line's top edge.
	AnchorY int
}

// Empty reports whether the block renders nothing.
func (b TextBlock) Empty() bool {
	return len(b.Lines) == 0
}

// LineY returns the y of line i.
func (b TextBlock) LineY(i int) int {
	return b.AnchorY + i*b.LineHeight
}

// Result holds both meme text blocks for a frame.
type Result struct {
	Top     TextBlock
	Bottom  TextBlock
	Metrics Metrics
}

// Plan wraps top and bottom text and lays them out on a frame of geom. The
// top block hangs 4% of the height below the top edge; the bottom block's
// last line ends 8% of the height above the bottom edge.
func Plan(geom Geometry, top, bottom string, resolver *script.Resolver, maxChars int) Result {
	topLines := Wrap(top, maxChars)
	bottomLines := Wrap(bottom, maxChars)

	maxLines := len(topLines)
	if len(bottomLines) > maxLines {
		maxLines = len(bottomLines)
	}
	m := Size(geom.Height, maxLines)

	res := Result{Metrics: m}
	res.Top = newBlock(top, topLines, m, AnchorTop, resolver)
	res.Top.AnchorY = geom.Height * 4 / 100

	res.Bottom = newBlock(bottom, bottomLines, m, AnchorBottom, resolver)
	res.Bottom.AnchorY = geom.Height - len(bottomLines)*m.LineHeight - geom.Height*8/100
	return res
}

func newBlock(raw string, lines []string, m Metrics, anchor Anchor, resolver *script.Resolver) TextBlock {
	b := TextBlock{
		RawText:     raw,
		Lines:       lines,
		FontSize:    m.FontSize,
		StrokeWidth: m.StrokeWidth,
		LineHeight:  m.LineHeight,
		Anchor:      anchor,
	}
	if resolver != nil && strings.TrimSpace(raw) != "" {
		b.Font = resolver.Resolve(raw)
	}
	return b
}

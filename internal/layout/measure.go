package layout

import (
	"image/color"
	"log/slog"
	"math"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
)

// Measurer reports the rendered width of text in pixels.
type Measurer interface {
	TextWidth(text, fontPath string, size int) int
}

// mmPerPoint converts canvas widths (millimetres) back to points, which map
// 1:1 to pixels for drawtext font sizes.
const mmPerPoint = 25.4 / 72

const estimateAdvance = 0.58

// EstimateWidth approximates the width of text assuming an average glyph
// advance of a bit over half the font size.
func EstimateWidth(text string, size int) int {
	return int(float64(utf8.RuneCountInString(text)) * estimateAdvance * float64(size))
}

// EstimateMeasurer measures with EstimateWidth only.
type EstimateMeasurer struct{}

func (EstimateMeasurer) TextWidth(text, _ string, size int) int {
	return EstimateWidth(text, size)
}

// CanvasMeasurer measures text with the real font outlines. Fonts are parsed
// once per path. Fonts that fail to load fall back to EstimateWidth.
type CanvasMeasurer struct {
	Logger *slog.Logger

	mu       sync.Mutex
	families map[string]*canvas.FontFamily
	failed   map[string]bool
}

// NewCanvasMeasurer returns an empty measurer.
func NewCanvasMeasurer(logger *slog.Logger) *CanvasMeasurer {
	return &CanvasMeasurer{
		Logger:   logger,
		families: make(map[string]*canvas.FontFamily),
		failed:   make(map[string]bool),
	}
}

func (m *CanvasMeasurer) TextWidth(text, fontPath string, size int) int {
	if text == "" {
		return 0
	}
	family := m.family(fontPath)
	if family == nil {
		return EstimateWidth(text, size)
	}
	face := family.Face(float64(size), color.White, canvas.FontRegular, canvas.FontNormal)
	return int(math.Ceil(face.TextWidth(text) / mmPerPoint))
}

func (m *CanvasMeasurer) family(path string) *canvas.FontFamily {
	if path == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.families == nil {
		m.families = make(map[string]*canvas.FontFamily)
		m.failed = make(map[string]bool)
	}
	if f, ok := m.families[path]; ok {
		return f
	}
	if m.failed[path] {
		return nil
	}

	data, err := os.ReadFile(path)
	if err == nil {
		f := canvas.NewFontFamily(path)
		if err = f.LoadFont(data, 0, canvas.FontRegular); err == nil {
			m.families[path] = f
			return f
		}
	}
	m.failed[path] = true
	if m.Logger != nil {
		m.Logger.Warn("font measurement unavailable, estimating width", "path", path, "err", err)
	}
	return nil
}

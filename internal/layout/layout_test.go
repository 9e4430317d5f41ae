package layout

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"clipforge/internal/script"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"empty", "", 35, nil},
		{"whitespace", "   \n  ", 35, nil},
		{"single line", "hello world", 35, []string{"hello world"}},
		{"greedy", "aaa bbb ccc ddd", 7, []string{"aaa bbb", "ccc ddd"}},
		{"explicit newline", "top\nbottom", 35, []string{"top", "bottom"}},
		{"crlf", "a\r\nb", 35, []string{"a", "b"}},
		{"long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"long word joins tail", "abcdefghij k", 4, []string{"abcd", "efgh", "ij k"}},
		{"runes not bytes", "你好 世界", 5, []string{"你好 世界"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Wrap(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestWrapNeverExceedsWidth(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet consecteturadipiscingelit ", 6)
	for _, line := range Wrap(text, 12) {
		if n := utf8.RuneCountInString(line); n > 12 || n == 0 {
			t.Fatalf("line %q has %d runes", line, n)
		}
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		height, lines int
		want          Metrics
	}{
		{1080, 1, Metrics{FontSize: 77, StrokeWidth: 7, LineHeight: 100}},
		{1080, 2, Metrics{FontSize: 67, StrokeWidth: 6, LineHeight: 87}},
		{720, 0, Metrics{FontSize: 51, StrokeWidth: 5, LineHeight: 66}},
		{100, 1, Metrics{FontSize: 18, StrokeWidth: 2, LineHeight: 23}},
	}
	for _, tt := range tests {
		if got := Size(tt.height, tt.lines); got != tt.want {
			t.Errorf("Size(%d, %d) = %+v, want %+v", tt.height, tt.lines, got, tt.want)
		}
	}
}

func TestPlanAnchors(t *testing.T) {
	table, err := script.NewTable(map[script.Script]string{
		script.English: "/fonts/en.ttf",
		script.Chinese: "/fonts/sc.ttf",
	})
	if err != nil {
		t.Fatal(err)
	}
	res := Plan(Geometry{Width: 1920, Height: 1080}, "TOP", "你好", script.NewResolver(table), 35)

	if res.Top.AnchorY != 43 {
		t.Fatalf("top anchor = %d, want 43", res.Top.AnchorY)
	}
	// 1080 - 1*100 - 86
	if res.Bottom.AnchorY != 894 {
		t.Fatalf("bottom anchor = %d, want 894", res.Bottom.AnchorY)
	}
	if res.Top.Font.Script != script.English || res.Bottom.Font.Script != script.Chinese {
		t.Fatalf("fonts = %q/%q", res.Top.Font.Script, res.Bottom.Font.Script)
	}
	if res.Top.LineY(1) != 143 {
		t.Fatalf("second line y = %d", res.Top.LineY(1))
	}
}

func TestPlanUsesTallerBlock(t *testing.T) {
	res := Plan(Geometry{Width: 640, Height: 1080}, "", "one\ntwo\nthree", nil, 35)
	if !res.Top.Empty() {
		t.Fatalf("top should be empty: %+v", res.Top)
	}
	if want := Size(1080, 3); res.Metrics != want {
		t.Fatalf("metrics = %+v, want %+v", res.Metrics, want)
	}
	if res.Bottom.FontSize != res.Metrics.FontSize {
		t.Fatal("bottom block does not share metrics")
	}
}

func TestPlaceBrand(t *testing.T) {
	b := PlaceBrand(Geometry{Width: 1280, Height: 720}, 150, script.English, DefaultBrandOptions())
	want := Brand{FontSize: 18, PrefixX: 20, PrefixY: 682, ProjectX: 170, ProjectY: 682}
	if b != want {
		t.Fatalf("PlaceBrand = %+v, want %+v", b, want)
	}

	lifted := PlaceBrand(Geometry{Width: 1280, Height: 720}, 150, script.Japanese, DefaultBrandOptions())
	if lifted.ProjectY != 680 || lifted.PrefixY != 682 {
		t.Fatalf("non-english project not lifted: %+v", lifted)
	}
}

func TestCanvasMeasurerFallsBackToEstimate(t *testing.T) {
	m := NewCanvasMeasurer(nil)
	got := m.TextWidth("luna.fun/memes/", "/does/not/exist.ttf", 18)
	if want := EstimateWidth("luna.fun/memes/", 18); got != want {
		t.Fatalf("TextWidth = %d, want estimate %d", got, want)
	}
	if m.TextWidth("", "/does/not/exist.ttf", 18) != 0 {
		t.Fatal("empty text should measure zero")
	}
}

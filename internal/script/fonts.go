package script

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FontAsset is a font file chosen for a script.
type FontAsset struct {
	Script Script
	Path   string
}

// DefaultFiles returns the stock Noto font file per script.
func DefaultFiles() map[string]string {
	return map[string]string{
		string(English):  "NotoSans-Bold.ttf",
		string(Chinese):  "NotoSansSC-Bold.ttf",
		string(Japanese): "NotoSansJP-Bold.ttf",
		string(Korean):   "NotoSansKR-Bold.ttf",
		string(Arabic):   "NotoSansArabic-Bold.ttf",
		string(Bengali):  "NotoSansBengali-Bold.ttf",
		string(Tamil):    "NotoSansTamil-Bold.ttf",
		string(Thai):     "NotoSansThai-Bold.ttf",
		string(Tagalog):  "NotoSansTagalog-Regular.ttf",
	}
}

// Table is an immutable script to font path map. Build it once at startup.
type Table struct {
	fonts map[Script]string
}

// NewTable builds a table from explicit paths without touching the disk.
// An English entry is required.
func NewTable(paths map[Script]string) (*Table, error) {
	fonts := make(map[Script]string, len(paths))
	for s, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		fonts[s] = p
	}
	if _, ok := fonts[English]; !ok {
		return nil, fmt.Errorf("font table has no %s font", English)
	}
	return &Table{fonts: fonts}, nil
}

// LoadTable resolves files against dir and keeps only fonts present on disk.
// A missing English font is fatal since every other script falls back to it.
func LoadTable(dir string, files map[string]string, logger *slog.Logger) (*Table, error) {
	paths := make(map[Script]string, len(files))
	for name, file := range files {
		s := Script(strings.ToLower(strings.TrimSpace(name)))
		if !known(s) {
			if logger != nil {
				logger.Warn("ignoring font for unknown script", "script", name, "file", file)
			}
			continue
		}
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, file)
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			if s == English {
				return nil, fmt.Errorf("missing font: %s", path)
			}
			if logger != nil {
				logger.Warn("font missing, script falls back to english", "script", s, "path", path)
			}
			continue
		}
		paths[s] = path
	}
	if _, ok := paths[English]; !ok {
		return nil, fmt.Errorf("no %s font configured", English)
	}
	return NewTable(paths)
}

// Path returns the font path for s.
func (t *Table) Path(s Script) (string, bool) {
	p, ok := t.fonts[s]
	return p, ok
}

// Scripts returns the scripts that have a font, sorted by name.
func (t *Table) Scripts() []Script {
	out := make([]Script, 0, len(t.fonts))
	for s := range t.fonts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func known(s Script) bool {
	for _, k := range All() {
		if k == s {
			return true
		}
	}
	return false
}

// Resolver maps text to a font. It never fails.
type Resolver struct {
	table *Table
}

// NewResolver returns a resolver over t.
func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t}
}

// Resolve detects the script of text and returns its font, degrading to
// English when the script has no font in the table.
func (r *Resolver) Resolve(text string) FontAsset {
	s := Detect(text)
	if p, ok := r.table.Path(s); ok {
		return FontAsset{Script: s, Path: p}
	}
	return r.English()
}

// English returns the universal fallback font.
func (r *Resolver) English() FontAsset {
	p, _ := r.table.Path(English)
	return FontAsset{Script: English, Path: p}
}

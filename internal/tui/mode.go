package tui

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode describes how progress output should be rendered.
type OutputMode int

const (
	// ModeTUI uses bubbletea for interactive progress rendering.
	ModeTUI OutputMode = iota
	// ModePlain prints a line as each stage finishes.
	ModePlain
	// ModeJSON prints nothing until the final JSON document.
	ModeJSON
)

// DetectMode picks the richest mode out supports. JSON wins over everything,
// and the TUI needs a real terminal with a usable TERM.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	switch {
	case jsonOutput:
		return ModeJSON
	case noProgress || !isTerminal(out):
		return ModePlain
	}
	if runtime.GOOS != "windows" {
		term := os.Getenv("TERM")
		if term == "" || strings.EqualFold(term, "dumb") {
			return ModePlain
		}
	}
	return ModeTUI
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

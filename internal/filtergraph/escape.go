package filtergraph

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// metachars are the characters the filter option parser treats specially.
var metachars = []string{"'", ":", "[", "]", ",", ";"}

// Escape makes text safe to embed as a filter option value. The escape
// character is protected first so later substitutions are not re-escaped,
// then each metacharacter, then line endings are normalized to a bare LF,
// which is drawtext's line break. A backslash sequence such as \n would be
// consumed by the option parser and render as a plain "n". Apply it once,
// when the value is embedded.
func Escape(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	for _, m := range metachars {
		text = strings.ReplaceAll(text, m, `\`+m)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Unescape decodes an option value the way the filter option parser does:
// a backslash makes the next character literal, whatever it is. It rejects
// bare metacharacters and dangling escapes, which Escape never produces.
func Unescape(escaped string) (string, error) {
	var b strings.Builder
	b.Grow(len(escaped))
	pending := false
	for i, r := range escaped {
		if pending {
			pending = false
			b.WriteRune(r)
			continue
		}
		if r == '\\' {
			pending = true
			continue
		}
		if isMeta(r) {
			return "", fmt.Errorf("unescaped %q at offset %d", r, i)
		}
		b.WriteRune(r)
	}
	if pending {
		return "", errors.New("dangling escape at end of input")
	}
	return b.String(), nil
}

func isMeta(r rune) bool {
	for _, m := range metachars {
		if string(r) == m {
			return true
		}
	}
	return false
}

// EscapePath escapes a file path for a filter option value.
func EscapePath(path string) string {
	return Escape(filepath.Clean(path))
}

// quote wraps an escaped value in single quotes for the filter graph parser.
// Quotes inside the value close the quoted run, emit an escaped quote and
// reopen it.
func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

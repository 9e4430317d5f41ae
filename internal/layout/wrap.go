// Package layout wraps meme text into lines and sizes and places the
// resulting blocks for a frame.
package layout

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the wrap width used when none is configured.
const DefaultMaxChars = 35

// Wrap greedily packs the words of text into lines of at most maxChars
// runes. Explicit newlines start a new line. A word longer than maxChars is
// hard-split into maxChars-wide chunks. Whitespace-only text yields no lines.
func Wrap(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		current := ""
		for _, word := range strings.Fields(paragraph) {
			for _, chunk := range splitRunes(word, maxChars) {
				if current == "" {
					current = chunk
					continue
				}
				if utf8.RuneCountInString(current)+1+utf8.RuneCountInString(chunk) <= maxChars {
					current += " " + chunk
					continue
				}
				lines = append(lines, current)
				current = chunk
			}
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

func splitRunes(word string, size int) []string {
	if utf8.RuneCountInString(word) <= size {
		return []string{word}
	}
	runes := []rune(word)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

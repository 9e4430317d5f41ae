// Package script detects the writing system of meme text and maps it to a
// font file.
package script

import (
	"unicode"
)

// Script names a writing system used to pick a font.
type Script string

const (
	English  Script = "english"
	Chinese  Script = "chinese"
	Japanese Script = "japanese"
	Korean   Script = "korean"
	Arabic   Script = "arabic"
	Thai     Script = "thai"
	Tamil    Script = "tamil"
	Bengali  Script = "bengali"
	Tagalog  Script = "tagalog"
)

type codeRange struct {
	script Script
	lo, hi rune
}

// priority order; a rune is checked against these top to bottom
var scriptRanges = []codeRange{
	{Chinese, 0x4E00, 0x9FFF},
	{Chinese, 0x3400, 0x4DBF},
	{Japanese, 0x3040, 0x309F},
	{Japanese, 0x30A0, 0x30FF},
	{Korean, 0xAC00, 0xD7AF},
	{Arabic, 0x0600, 0x06FF},
	{Thai, 0x0E00, 0x0E7F},
	{Tamil, 0x0B80, 0x0BFF},
	{Bengali, 0x0980, 0x09FF},
	{Tagalog, 0x1700, 0x171F},
}

// All lists every known script, English first.
func All() []Script {
	return []Script{English, Chinese, Japanese, Korean, Arabic, Thai, Tamil, Bengali, Tagalog}
}

// Detect scans text left to right and returns the script of the first rune
// that identifies one. Runes in a known range identify that script; any
// other letter identifies English. Spaces, digits, punctuation and symbols
// identify nothing. Text with no identifying rune is English.
func Detect(text string) Script {
	for _, r := range text {
		if s, ok := classify(r); ok {
			return s
		}
	}
	return English
}

func classify(r rune) (Script, bool) {
	for _, cr := range scriptRanges {
		if r >= cr.lo && r <= cr.hi {
			return cr.script, true
		}
	}
	if unicode.IsLetter(r) {
		return English, true
	}
	return "", false
}

package tools

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

func readVersion(ctx context.Context, def ToolDefinition, path string) (string, error) {
	cmd := exec.CommandContext(ctx, path, def.VersionSwitch)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s version: %w", def.Name, err)
	}

	line := firstLine(strings.TrimSpace(string(output)))
	return normalizeFFmpegVersion(line), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

var ffmpegVersionRegex = regexp.MustCompile(`version n?([0-9]+(?:\.[0-9]+){0,2})`)

// normalizeFFmpegVersion extracts "6.1.1" from "ffmpeg version 6.1.1 Copyright ...".
// Git builds ("version N-112345-g...") are returned whole.
func normalizeFFmpegVersion(line string) string {
	m := ffmpegVersionRegex.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	match := m[1]
	if match == "" {
		return line
	}
	return match
}

// meetsMinimum compares dotted numeric versions; missing parts count as 0.
func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	v, m := numericParts(version), numericParts(minimum)
	if len(v) == 0 {
		return false
	}
	for i := 0; i < max(len(v), len(m)); i++ {
		a, b := part(v, i), part(m, i)
		if a != b {
			return a > b
		}
	}
	return true
}

func part(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

func numericParts(version string) []int {
	fields := strings.FieldsFunc(version, func(r rune) bool { return r < '0' || r > '9' })
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return parts
}

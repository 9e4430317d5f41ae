package tools

import (
	"runtime"
	"sort"
)

// Names of the binaries the pipeline shells out to.
const (
	FFmpeg  = "ffmpeg"
	FFprobe = "ffprobe"
)

var toolDefinitions = map[string]ToolDefinition{
	FFmpeg: {
		Name:           FFmpeg,
		MinimumVersion: "4.4",
		Executable:     executableName(FFmpeg),
		VersionSwitch:  "-version",
	},
	FFprobe: {
		Name:           FFprobe,
		MinimumVersion: "4.4",
		Executable:     executableName(FFprobe),
		VersionSwitch:  "-version",
	},
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// KnownTools returns the list of required tool names.
func KnownTools() []string {
	names := make([]string, 0, len(toolDefinitions))
	for name := range toolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	def, ok := toolDefinitions[name]
	return def, ok
}

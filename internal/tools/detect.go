package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"clipforge/internal/config"
)

// Paths are the resolved binaries the pipeline runs.
type Paths struct {
	FFmpeg  string
	FFprobe string
}

// Detect returns the status of each required tool. Paths pinned in cfg
// take precedence over PATH lookup.
func Detect(ctx context.Context, cfg config.ToolsConfig) []Status {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	var statuses []Status
	for _, name := range KnownTools() {
		def, _ := Definition(name)
		statuses = append(statuses, detectOne(ctx, def, override(cfg, name)))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Tool < statuses[j].Tool })
	return statuses
}

// Locate resolves the binaries without running them. It fails when either
// is missing.
func Locate(cfg config.ToolsConfig) (Paths, error) {
	var p Paths
	var missing []string
	for _, name := range KnownTools() {
		def, _ := Definition(name)
		path, _, err := locate(def, override(cfg, name))
		if err != nil {
			missing = append(missing, err.Error())
			continue
		}
		switch name {
		case FFmpeg:
			p.FFmpeg = path
		case FFprobe:
			p.FFprobe = path
		}
	}
	if len(missing) > 0 {
		return Paths{}, errors.New(strings.Join(missing, "; "))
	}
	return p, nil
}

func override(cfg config.ToolsConfig, name string) string {
	switch name {
	case FFmpeg:
		return strings.TrimSpace(cfg.FFmpeg)
	case FFprobe:
		return strings.TrimSpace(cfg.FFprobe)
	}
	return ""
}

func detectOne(ctx context.Context, def ToolDefinition, pinned string) Status {
	status := Status{Tool: def.Name, Minimum: def.MinimumVersion}

	path, source, err := locate(def, pinned)
	if err != nil {
		status.Error = err.Error()
		status.Hints = installHints(def.Name)
		return status
	}
	status.Path = path
	status.Source = source

	version, err := readVersion(ctx, def, path)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = version
	status.Satisfied = meetsMinimum(version, def.MinimumVersion)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s below minimum %s", version, def.MinimumVersion)
		status.Hints = installHints(def.Name)
	}
	return status
}

func locate(def ToolDefinition, pinned string) (string, Source, error) {
	if pinned != "" {
		info, err := os.Stat(pinned)
		if err != nil {
			return "", SourceUnknown, fmt.Errorf("%s not found at %s", def.Name, pinned)
		}
		if info.IsDir() {
			return "", SourceUnknown, fmt.Errorf("%s path %s is a directory", def.Name, pinned)
		}
		return pinned, SourceConfig, nil
	}
	path, err := exec.LookPath(def.Executable)
	if err != nil {
		return "", SourceUnknown, fmt.Errorf("%s not found in PATH", def.Executable)
	}
	return path, SourceSystem, nil
}

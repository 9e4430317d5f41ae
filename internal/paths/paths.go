package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultSlug names outputs when a request carries no usable id.
const DefaultSlug = "clipforge"

const maxSlugLen = 80

var (
	slugSpace   = regexp.MustCompile(`\s+`)
	slugInvalid = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Slug reduces value to a file-name-safe identifier: whitespace runs become
// dashes, other characters outside [A-Za-z0-9._-] are dropped and the result
// is capped at 80 bytes. Empty results fall back to DefaultSlug.
func Slug(value string) string {
	s := strings.TrimSpace(value)
	s = slugSpace.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = strings.Trim(s, "._-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	if s == "" {
		return DefaultSlug
	}
	return s
}

// Workspace is a per-request scratch directory. Its name carries a random
// token so concurrent requests never share one.
type Workspace struct {
	ID         string
	Dir        string
	InputsDir  string
	OutputsDir string
	LogsDir    string
}

// NewWorkspace creates <root>/<slug>_<uuid> and its subdirectories.
func NewWorkspace(root, slug string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		root = os.TempDir()
	}
	id := uuid.NewString()
	dir := filepath.Join(root, Slug(slug)+"_"+id)
	ws := &Workspace{
		ID:         id,
		Dir:        dir,
		InputsDir:  filepath.Join(dir, "inputs"),
		OutputsDir: filepath.Join(dir, "outputs"),
		LogsDir:    filepath.Join(dir, "logs"),
	}
	for _, d := range []string{ws.InputsDir, ws.OutputsDir, ws.LogsDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("create scratch directory %s: %w", d, err)
		}
	}
	return ws, nil
}

// Work returns a path for an intermediate file.
func (w *Workspace) Work(name string) string {
	return filepath.Join(w.Dir, name)
}

// Release removes the workspace and everything in it.
func (w *Workspace) Release() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("remove scratch directory: %w", err)
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

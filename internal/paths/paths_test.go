package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "clipforge"},
		{"   ", "clipforge"},
		{"my meme  42", "my-meme-42"},
		{"..hidden..", "hidden"},
		{"héllo/wörld", "hllowrld"},
		{"你好", "clipforge"},
		{"a_b.c-d", "a_b.c-d"},
	}
	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := strings.Repeat("x", 200)
	if got := Slug(long); len(got) != 80 {
		t.Fatalf("long slug length = %d, want 80", len(got))
	}
}

func TestWorkspaceLifecycle(t *testing.T) {
	root := t.TempDir()
	a, err := NewWorkspace(root, "same id")
	if err != nil {
		t.Fatalf("NewWorkspace error: %v", err)
	}
	b, err := NewWorkspace(root, "same id")
	if err != nil {
		t.Fatalf("NewWorkspace error: %v", err)
	}
	if a.Dir == b.Dir {
		t.Fatalf("workspaces collide: %s", a.Dir)
	}
	if !strings.HasPrefix(filepath.Base(a.Dir), "same-id_") {
		t.Fatalf("workspace dir = %s", a.Dir)
	}

	for _, d := range []string{a.InputsDir, a.OutputsDir, a.LogsDir} {
		if ok, err := DirExists(d); err != nil || !ok {
			t.Fatalf("missing %s: %v", d, err)
		}
	}
	if err := os.WriteFile(a.Work("x.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := a.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if ok, _ := DirExists(a.Dir); ok {
		t.Fatal("workspace still present after release")
	}
	if ok, _ := DirExists(b.Dir); !ok {
		t.Fatal("releasing one workspace removed another")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := FileExists(file); err != nil || !ok {
		t.Fatalf("FileExists(file) = %v, %v", ok, err)
	}
	if ok, _ := FileExists(dir); ok {
		t.Fatal("directory reported as file")
	}
	if ok, err := FileExists(filepath.Join(dir, "missing")); err != nil || ok {
		t.Fatalf("FileExists(missing) = %v, %v", ok, err)
	}
}

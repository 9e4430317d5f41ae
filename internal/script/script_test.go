package script

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		input string
		want  Script
	}{
		{"", English},
		{"   123 !!", English},
		{"Hello 你好", English},
		{"你好 Hello", Chinese},
		{"!!! 你好", Chinese},
		{"こんにちは", Japanese},
		{"カタカナ", Japanese},
		{"안녕하세요", Korean},
		{"مرحبا", Arabic},
		{"สวัสดี", Thai},
		{"வணக்கம்", Tamil},
		{"নমস্কার", Bengali},
		{"ᜋᜑᜎ᜔", Tagalog},
		{"Привет", English},
		{"2024 年", Chinese},
	}

	for _, tt := range tests {
		if got := Detect(tt.input); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolverFallsBackToEnglish(t *testing.T) {
	table, err := NewTable(map[Script]string{
		English: "/fonts/en.ttf",
		Chinese: "/fonts/sc.ttf",
	})
	if err != nil {
		t.Fatalf("NewTable error: %v", err)
	}
	r := NewResolver(table)

	if got := r.Resolve("你好"); got.Script != Chinese || got.Path != "/fonts/sc.ttf" {
		t.Fatalf("Resolve(chinese) = %+v", got)
	}
	if got := r.Resolve("안녕"); got.Script != English || got.Path != "/fonts/en.ttf" {
		t.Fatalf("Resolve(korean without font) = %+v, want english fallback", got)
	}
	if got := r.Resolve(""); got.Script != English {
		t.Fatalf("Resolve(empty) = %+v, want english", got)
	}
}

func TestNewTableRequiresEnglish(t *testing.T) {
	if _, err := NewTable(map[Script]string{Chinese: "/fonts/sc.ttf"}); err == nil {
		t.Fatal("expected error without english font")
	}
}

func TestLoadTableDropsMissingFonts(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "NotoSans-Bold.ttf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "NotoSansJP-Bold.ttf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTable(dir, DefaultFiles(), nil)
	if err != nil {
		t.Fatalf("LoadTable error: %v", err)
	}

	scripts := table.Scripts()
	if len(scripts) != 2 || scripts[0] != English || scripts[1] != Japanese {
		t.Fatalf("Scripts() = %v, want [english japanese]", scripts)
	}

	r := NewResolver(table)
	if got := r.Resolve("你好"); got.Script != English {
		t.Fatalf("chinese without font resolved to %q, want english", got.Script)
	}
}

func TestLoadTableMissingEnglishIsFatal(t *testing.T) {
	if _, err := LoadTable(t.TempDir(), DefaultFiles(), nil); err == nil {
		t.Fatal("expected missing english font to fail")
	}
}

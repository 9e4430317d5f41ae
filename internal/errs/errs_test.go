package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindUnknown, "unknown"},
		{KindValidation, "validation"},
		{KindAsset, "asset"},
		{KindEngine, "engine"},
		{KindInvariant, "invariant"},
		{Kind(99), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.kind.String())
		})
	}
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"validation", Invalid("clips", "need 1 or 3, got %d", 2), KindValidation},
		{"wrapped validation", fmt.Errorf("compose: %w", Invalid("clips", "x")), KindValidation},
		{"asset", Asset("fetch", "https://x/y.mp4", errors.New("404")), KindAsset},
		{"engine", Engine("ffmpeg", errors.New("exit status 1"), []byte("bad"), 10), KindEngine},
		{"invariant", Invariant("label %q reused", "v1"), KindInvariant},
		{"wrapped invariant", fmt.Errorf("build: %w", Invariant("dangling")), KindInvariant},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, KindOf(test.err))
		})
	}
}

func TestAssetNilStaysNil(t *testing.T) {
	assert.NoError(t, Asset("fetch", "x", nil))
	assert.NoError(t, Engine("ffmpeg", nil, []byte("ignored"), 10))
}

func TestEngineKeepsDiagnosticTail(t *testing.T) {
	diag := []byte(strings.Repeat("a", 100) + "the real reason")
	err := Engine("ffmpeg", errors.New("exit status 1"), diag, 15)

	var ee *EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "the real reason", ee.Diagnostic)
	assert.Contains(t, err.Error(), "ffmpeg failed: exit status 1")
}

func TestTailDropsPartialRune(t *testing.T) {
	b := []byte("ab你好")
	// last 4 bytes cut into the first CJK rune
	assert.Equal(t, "好", Tail(b, 4))
	assert.Equal(t, "ab你好", Tail(b, 0))
}

func TestValidationMessage(t *testing.T) {
	err := Invalid("max_duration_seconds", "must be between 0 and %d", 120)
	assert.Equal(t, "invalid request: max_duration_seconds: must be between 0 and 120", err.Error())
	assert.True(t, IsValidation(err))
}

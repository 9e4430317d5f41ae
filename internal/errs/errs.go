// Package errs classifies the failures a render request can end in. Callers
// wrap with fmt.Errorf("%w") freely; KindOf recovers the class through the
// chain.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the failure class of an error.
type Kind int

const (
	// KindUnknown covers errors that carry no classification.
	KindUnknown Kind = iota
	// KindValidation is a malformed request. Surfaced verbatim, never retried.
	KindValidation
	// KindAsset is a fetch or probe failure for a named asset.
	KindAsset
	// KindEngine is a non-zero exit from the media engine.
	KindEngine
	// KindInvariant is a planner bug: a graph that would be mis-wired.
	KindInvariant
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAsset:
		return "asset"
	case KindEngine:
		return "engine"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// ErrInvariant marks planner invariant violations.
var ErrInvariant = errors.New("planner invariant violated")

// ValidationError captures a single request-level validation problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Message)
}

// AssetError identifies the asset a fetch or probe failed on.
type AssetError struct {
	Asset string
	Op    string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Asset, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// EngineError carries the tail of the engine's diagnostic stream.
type EngineError struct {
	Tool       string
	Err        error
	Diagnostic string
}

func (e *EngineError) Error() string {
	diag := strings.TrimSpace(e.Diagnostic)
	if diag == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Tool, e.Err, diag)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Asset wraps err as an AssetError. Nil stays nil.
func Asset(op, asset string, err error) error {
	if err == nil {
		return nil
	}
	return &AssetError{Asset: asset, Op: op, Err: err}
}

// Engine wraps err as an EngineError keeping at most tailBytes of diagnostic.
func Engine(tool string, err error, diagnostic []byte, tailBytes int) error {
	if err == nil {
		return nil
	}
	return &EngineError{Tool: tool, Err: err, Diagnostic: Tail(diagnostic, tailBytes)}
}

// Invariant reports a planner bug.
func Invariant(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}

// Tail returns the last n bytes of b as a string, dropping a leading partial
// UTF-8 sequence.
func Tail(b []byte, n int) string {
	if n <= 0 || len(b) <= n {
		return strings.ToValidUTF8(string(b), "")
	}
	return strings.ToValidUTF8(string(b[len(b)-n:]), "")
}

// KindOf classifies err by walking its wrap chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var ae *AssetError
	if errors.As(err, &ae) {
		return KindAsset
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return KindEngine
	}
	if errors.Is(err, ErrInvariant) {
		return KindInvariant
	}
	return KindUnknown
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

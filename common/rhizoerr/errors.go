// Package rhizoerr classifies rhizo failures by kind (spec.md §7) instead of
// by concrete type, so callers across subsystems can branch on "is this
// recoverable" without importing every producer's package.
package rhizoerr

import (
	"errors"
	"fmt"
)

// Kind is the coarse failure category a caller can act on.
type Kind int

const (
	// KindInvalidInput covers malformed hashes, branch names, chunk sizes,
	// column names, or op-type strings.
	KindInvalidInput Kind = iota
	// KindNotFound covers missing chunks, tables, versions, branches, or
	// transactions.
	KindNotFound
	// KindConflict covers write-write, snapshot, merge, fast-forward, and
	// algebraic type-mismatch conflicts.
	KindConflict
	// KindIntegrity covers hash mismatches, corrupted latest pointers, and
	// Merkle tree corruption.
	KindIntegrity
	// KindIO covers underlying filesystem failures.
	KindIO
	// KindState covers transaction-state violations (not active, already
	// committed/aborted).
	KindState
	// KindOverflow covers arithmetic overflow and Parquet row-count/metadata
	// bounds violations.
	KindOverflow
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	case KindIO:
		return "io"
	case KindState:
		return "state"
	case KindOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged, wrappable error carrying enough context to act on
// (spec.md §7: "expected vs actual hash; read vs current version;
// conflicting table list").
type Error struct {
	Kind    Kind
	Code    string // short machine-stable name, e.g. "SnapshotConflict"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is match err against another *Error with the same Kind and
// Code; callers more commonly use Of/Is below.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind && e.Code == other.Code
	}
	return false
}

// New constructs a new Error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap constructs a new Error of the given kind wrapping cause.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Of extracts the Kind of err, if it (or something it wraps) is a *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err is a rhizoerr.Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}

// Package ivgerr defines the caller-visible error kinds for the ivgraph
// query pipeline, from lexing through SQL execution.
package ivgerr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can branch on failure category
// without parsing message text.
type Kind int

const (
	// Internal covers anything not classified below. Logged with detail
	// at debug level; never surfaced verbatim to callers.
	Internal Kind = iota
	// Parse covers malformed Cypher text.
	Parse
	// Validation covers invalid identifiers, options, or limits caught
	// before any SQL is sent.
	Validation
	// Unsupported covers Cypher constructs or database capabilities
	// this deployment does not implement.
	Unsupported
	// Integrity covers foreign-key violations and duplicate keys.
	Integrity
	// Dimension covers embedding vectors whose length does not match
	// the configured dimension.
	Dimension
	// Timeout covers a caller deadline exceeded mid-execution.
	Timeout
	// Connection covers the database being unreachable.
	Connection
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "parse"
	case Validation:
		return "validation"
	case Unsupported:
		return "unsupported"
	case Integrity:
		return "integrity"
	case Dimension:
		return "dimension"
	case Timeout:
		return "timeout"
	case Connection:
		return "connection"
	default:
		return "internal"
	}
}

// Error is the concrete error type returned across package boundaries.
// It carries a Kind so callers can errors.As into it and branch, and it
// wraps an optional underlying cause for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error carrying an underlying cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf constructs an Error with a formatted message and an
// underlying cause.
func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, returning Internal if err is not an
// *Error (or is nil, which returns Internal as a conservative default).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

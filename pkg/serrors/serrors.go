// Package serrors provides semantic error kinds: comparable sentinels that can
// be attached to concrete errors so callers can branch on the failure category
// with errors.Is instead of string matching.
package serrors

import (
	"errors"
	"fmt"
)

// Kind is a marker interface implemented by all semantic error kinds created
// with NewKind.
type Kind interface {
	error
	isKind()
}

type kind struct{ s string }

func (k kind) Error() string { return k.s }
func (k kind) isKind()       {}

// NewKind creates a new semantic error kind (a sentinel) with the provided
// name. Kinds are comparable and work with errors.Is/As through the Error
// wrapper.
func NewKind(name string) Kind { return kind{s: name} }

// Kinds for the failure categories of the monetization pipeline, plus a small
// set of generic categories. Resolution and enrichment failures are recovered
// locally and degrade to the best available monetization; AuthExpired is a
// signal for the session manager, not an abort.
var (
	// ErrBadRequest indicates the caller supplied invalid input.
	ErrBadRequest = NewKind("BAD_REQUEST")
	// ErrUnauthorized indicates missing or invalid authentication.
	ErrUnauthorized = NewKind("UNAUTHORIZED")
	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = NewKind("TIMEOUT")
	// ErrUnavailable indicates a transient upstream failure worth retrying.
	ErrUnavailable = NewKind("UNAVAILABLE")

	// ErrResolutionTimeout indicates a redirect-resolution stage timed out.
	ErrResolutionTimeout = NewKind("RESOLUTION_TIMEOUT")
	// ErrResolutionExhausted indicates no resolution stage succeeded.
	ErrResolutionExhausted = NewKind("RESOLUTION_EXHAUSTED")
	// ErrNoASINFound indicates an Amazon-like URL with no extractable product ID.
	ErrNoASINFound = NewKind("NO_ASIN_FOUND")
	// ErrEnrichmentFailed indicates the product data call failed; never fatal.
	ErrEnrichmentFailed = NewKind("ENRICHMENT_FAILED")
	// ErrAuthExpired indicates the affiliate network session is no longer valid.
	ErrAuthExpired = NewKind("AUTH_EXPIRED")
	// ErrRateLimited indicates the remote side refused due to request volume.
	ErrRateLimited = NewKind("RATE_LIMITED")
	// ErrRetriesExhausted indicates all bounded attempts failed.
	ErrRetriesExhausted = NewKind("RETRIES_EXHAUSTED")
	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = NewKind("MALFORMED_RESPONSE")
)

// Error is a semantic error carrying a kind, an optional wrapped cause and an
// optional message. errors.Is/As match against both the kind sentinel and the
// wrapped cause.
type Error struct {
	kind Kind
	err  error
	msg  string
}

// With constructs a semantic error with the given kind and message.
func With(k Kind, msgFmt string, args ...any) *Error {
	return &Error{kind: k, msg: fmt.Sprintf(msgFmt, args...)}
}

// Wrap constructs a semantic error with the given kind that wraps cause.
func Wrap(k Kind, err error, msgFmt string, args ...any) *Error {
	return &Error{kind: k, err: err, msg: fmt.Sprintf(msgFmt, args...)}
}

// KindOnly creates a semantic error carrying only the kind.
func KindOnly(k Kind) *Error { return &Error{kind: k} }

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.msg != "" && e.err != nil:
		return e.msg + ": " + e.err.Error()
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		if e.kind != nil {
			return e.kind.Error()
		}

		return "unknown error"
	}
}

// Unwrap returns the wrapped cause, enabling errors.Unwrap/Is/As traversal.
func (e *Error) Unwrap() error { return e.err }

// Is matches either the kind sentinel or the wrapped cause.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return e == nil && target == nil
	}
	if e.kind != nil && errors.Is(e.kind, target) {
		return true
	}
	if e.err != nil && errors.Is(e.err, target) {
		return true
	}

	return false
}

// As matches either the kind sentinel or the wrapped cause.
func (e *Error) As(target any) bool {
	if e == nil || target == nil {
		return false
	}
	if e.kind != nil && errors.As(e.kind, target) {
		return true
	}
	if e.err != nil && errors.As(e.err, target) {
		return true
	}

	return false
}

// Kind returns the semantic kind sentinel associated with this error, or nil.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the message attached to this error.
func (e *Error) Message() string { return e.msg }

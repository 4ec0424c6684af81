// Package apperr defines the error kinds surfaced to users of the tool.
//
// Every failure is recoverable by retrying: validation problems are fixed by the
// user, a missing session by entering an access code, and backend or proxy
// failures by trying again.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for presentation.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNoActiveSession
	KindBackend
	KindProxy
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNoActiveSession:
		return "no_active_session"
	case KindBackend:
		return "backend_error"
	case KindProxy:
		return "api_error"
	default:
		return "unknown_error"
	}
}

// Error is a user-facing error with a kind and an optional cause.
type Error struct {
	Kind  Kind
	Field string // offending input field, validation only
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNoActiveSession is returned by any session-scoped operation attempted
// without a session handle.
var ErrNoActiveSession = &Error{
	Kind: KindNoActiveSession,
	Msg:  "no active session: enter an access code to continue",
}

// Validation reports invalid or missing input.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

// Backend wraps a storage failure.
func Backend(op string, err error) *Error {
	return &Error{Kind: KindBackend, Msg: op + " failed, please try again", Err: err}
}

// Proxy wraps a text-generation failure.
func Proxy(op string, err error) *Error {
	return &Error{Kind: KindProxy, Msg: op + " failed, please try again", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// Retryable reports whether retrying the same operation may succeed.
func Retryable(err error) bool {
	k := KindOf(err)
	return k == KindBackend || k == KindProxy
}

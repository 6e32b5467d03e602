// Package autherr defines the error taxonomy shared by the API client and the
// session manager.
//
// Every failure that crosses the session boundary is an *Error whose Kind is
// one of the sentinel errors below, so callers can branch with errors.Is and
// show Message to the user.
package autherr

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is the kind for requests that could not complete.
	ErrNetwork = errors.New("network error")

	// ErrAuthRejected is the kind for unauthorized or invalid-credential responses.
	ErrAuthRejected = errors.New("authentication rejected")

	// ErrValidationFailed is the kind for malformed input or responses with
	// missing or unexpected fields.
	ErrValidationFailed = errors.New("validation failed")

	// ErrStorageUnavailable is the kind for failed credential reads or writes.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Error is a normalized failure carrying a human-readable message.
type Error struct {
	Kind    error  // one of the Err* sentinels
	Status  int    // HTTP status when the backend answered, 0 otherwise
	Message string // message from the backend, or a localized fallback
	Err     error  // underlying cause, may be nil
}

// Error implements the error interface. It returns the user-facing message
// when one is set.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprint(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// New creates an error of the given kind.
func New(kind error, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

// Network wraps a transport failure.
func Network(cause error) *Error {
	return &Error{Kind: ErrNetwork, Err: cause}
}

// Storage wraps a persistence failure.
func Storage(cause error) *Error {
	return &Error{Kind: ErrStorageUnavailable, Err: cause}
}

// Validation reports malformed input or an incomplete response.
func Validation(message string) *Error {
	return &Error{Kind: ErrValidationFailed, Message: message}
}

// KindOf returns the kind of err, or nil if err is not an *Error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// Message returns the human-readable message carried by err, or fallback
// when err carries none (transport and storage failures).
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// WithFallback returns err as an *Error whose Message is filled with
// fallback when the backend did not supply one. Other errors are wrapped
// with kind ErrNetwork.
func WithFallback(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: ErrNetwork, Message: fallback, Err: err}
	}
	if e.Message != "" {
		return e
	}
	out := *e
	out.Message = fallback
	return &out
}

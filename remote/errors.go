package remote

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure for the sync engine's retry policy
type Kind int

const (
	// KindTransport covers unreachable network, timeouts and 5xx responses.
	// Recovered locally: the record stays pending and is retried next cycle.
	KindTransport Kind = iota
	// KindUnauthorized means the session is no longer valid. Never retried by
	// the engine; escalated to the auth collaborator instead.
	KindUnauthorized
	// KindNotFound means the canonical entity no longer exists server-side
	KindNotFound
	// KindRejected is a 4xx business validation failure. Retrying blindly will
	// not help, so it is surfaced in the cycle report.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

// Error represents a failure at the network boundary
type Error struct {
	Op         string // e.g. "CreateTask", "ListProjects"
	Kind       Kind
	StatusCode int    // HTTP status code (0 if not an HTTP error)
	Message    string // Human-readable message, for rejected errors shown to the user
	Err        error  // Optional underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d (%s): %s", e.Op, e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s failed (%s): %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying error for error wrapping
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error without an HTTP status
func NewError(op string, kind Kind, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

// WithError wraps an underlying error
func (e *Error) WithError(err error) *Error {
	e.Err = err
	return e
}

func kindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

// IsRemote reports whether err originated at the gateway boundary
func IsRemote(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// IsTransport reports whether err is a retryable transport failure
func IsTransport(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransport
}

// IsUnauthorized reports whether err means the session must be invalidated
func IsUnauthorized(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindUnauthorized
}

// IsNotFound reports whether the canonical entity is gone server-side
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

// IsRejected reports whether the server rejected the payload
func IsRejected(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindRejected
}

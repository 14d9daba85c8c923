package utils

import "fmt"

// ErrorWithSuggestion wraps an error with a hint about how to recover
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// ErrSessionExpired is returned when the remote rejected the stored credential
func ErrSessionExpired() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("session expired or credential rejected"),
		Suggestion: "Run 'tracksync login' to store a fresh API token",
	}
}

// ErrNotLoggedIn is returned when no credential has been stored yet
func ErrNotLoggedIn(underlying error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no credential available: %w", underlying),
		Suggestion: "Run 'tracksync login' to store your API token",
	}
}

// ErrRecordNotFound is returned when a local key does not match any record
func ErrRecordNotFound(localKey string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("no record found for key '%s'", localKey),
		Suggestion: "Run 'tracksync task list' to see cached records and their keys",
	}
}

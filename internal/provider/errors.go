package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable means the backend has no usable credential.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrEmptyResponse means the backend answered with no text.
	ErrEmptyResponse = errors.New("provider returned an empty response")

	// ErrNoProvider means every configured backend failed for one request.
	ErrNoProvider = errors.New("no provider produced a reply")
)

// CallError is a transport or API failure from a backend.
type CallError struct {
	Err     error
	Backend string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("provider %s call failed: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying SDK error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// IsCallError checks if an error is a provider call failure.
func IsCallError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}

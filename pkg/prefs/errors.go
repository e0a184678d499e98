package prefs

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps backend failures of a persistent store.
	ErrStoreUnavailable = errors.New("preference store unavailable")
)

// ValidationError wraps an invalid preference update. The stored preferences
// are left untouched when it is returned.
type ValidationError struct {
	cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid preferences: %v", e.cause)
}

func (e *ValidationError) Unwrap() error { return e.cause }

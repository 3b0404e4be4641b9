package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a lookup whose target does not exist or is already
	// soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrLevelInUse blocks level deletion while users still reference the
	// level. It must reach the caller verbatim, never swallowed.
	ErrLevelInUse = errors.New("level is referenced by existing users and cannot be deleted")
)

// ValidationError reports a bad field value. Always recoverable by the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on '%s': %s", e.Field, e.Reason)
}

// PersistenceError wraps a storage-layer failure. The operation that produced
// it guarantees no partial mutation was left behind.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotFound wraps ErrNotFound with entity context so errors.Is still matches.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s with ID %s: %w", entity, id, ErrNotFound)
}

// IsRecoverable reports whether the error is a business-rule rejection the
// caller can correct, as opposed to a storage failure.
func IsRecoverable(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrLevelInUse) || errors.As(err, &ve)
}

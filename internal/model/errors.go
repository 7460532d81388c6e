package model

import (
	"errors"
	"fmt"
)

// ValidationError reports input rejected before any I/O took place.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// NotFoundError reports an operation on an unknown id, or on a record that
// is not in the state the operation requires.
type NotFoundError struct {
	Entity string
	ID     string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s not found: %s", e.Entity, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StorageIOError wraps a failure of the local database.
type StorageIOError struct {
	Op  string
	Err error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

// ErrLocalChanged reports that local data was edited after it was read for
// a sync cycle, so replacing it would lose the edit.
var ErrLocalChanged = errors.New("local data changed during sync")

// IsValidation reports whether err (or any error in its chain) is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsStorageIO reports whether err (or any error in its chain) is a StorageIOError.
func IsStorageIO(err error) bool {
	var target *StorageIOError
	return errors.As(err, &target)
}

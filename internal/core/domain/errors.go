package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that fails a domain invariant (empty login, negative value, ...).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized marks bad credentials or an insufficient role.
	ErrUnauthorized = errors.New("unauthorized")

	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadySubmitted is returned when readings for the month are already stored.
	ErrAlreadySubmitted = errors.New("readings already submitted for this month")
	// ErrSubmissionInProgress is returned when another submission holds the (login, month) lock.
	ErrSubmissionInProgress = errors.New("submission for this month is already in progress")

	ErrInvalidMonth = errors.New("month must be a number from 1 to 12")

	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a backend fault so callers never see driver-specific error types.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err with the failing operation. A nil err yields nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

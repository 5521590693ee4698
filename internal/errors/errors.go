// Package errors provides consistent error types for medtrack.
// It defines two categories: InvalidRequestError (malformed input, reported
// synchronously and never retried) and PersistenceError (storage failures,
// reported through the failing mutation's future).
package errors

import (
	"errors"
	"fmt"
)

// Category sentinels. Every InvalidRequestError matches ErrInvalidRequest and
// every PersistenceError matches ErrPersistence under errors.Is.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrPersistence    = errors.New("persistence error")
)

// Causes carried by InvalidRequestError.
var (
	ErrUnsupportedKind    = errors.New("entity kind not supported yet")
	ErrUnknownKind        = errors.New("unknown entity kind")
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidField       = errors.New("invalid field value")
	ErrAlreadyPersisted   = errors.New("record already has a primary key")
	ErrDuplicateName      = errors.New("medication name already exists")
	ErrInvalidInterval    = errors.New("invalid interval index")
	ErrInvalidDateTime    = errors.New("invalid date or time")
	ErrReminderNotFound   = errors.New("reminder not found")
	ErrMedicationNotFound = errors.New("medication not found")
)

// Causes carried by PersistenceError.
var (
	ErrClosed            = errors.New("repository closed")
	ErrDiskFull          = errors.New("disk full")
	ErrDatabaseCorrupted = errors.New("database corrupted")
	ErrLockHeld          = errors.New("database locked by another process")
)

// InvalidRequestError represents input the caller must fix.
type InvalidRequestError struct {
	Message string // What happened
	Field   string // The field that caused the error (optional)
	Value   string // The invalid value (optional)
	Cause   error  // Specific reason (optional)
}

func (e *InvalidRequestError) Error() string {
	msg := e.Message
	if e.Field != "" && e.Value != "" {
		msg = fmt.Sprintf("%s: '%s'", e.Message, e.Value)
	} else if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Message, e.Field)
	}
	return msg
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Cause
}

// Is matches the ErrInvalidRequest category sentinel.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// NewInvalidRequest creates a new InvalidRequestError.
func NewInvalidRequest(message string, cause error) *InvalidRequestError {
	return &InvalidRequestError{
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidField creates a new InvalidRequestError with field context.
func NewInvalidField(field, value, message string, cause error) *InvalidRequestError {
	return &InvalidRequestError{
		Message: message,
		Field:   field,
		Value:   value,
		Cause:   cause,
	}
}

// PersistenceError represents a storage failure.
type PersistenceError struct {
	Message string // What happened
	Cause   error  // The underlying error
	Op      string // The operation that failed (optional)
}

func (e *PersistenceError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s during %s", e.Message, e.Op)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Is matches the ErrPersistence category sentinel.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, message string, cause error) *PersistenceError {
	return &PersistenceError{
		Message: message,
		Cause:   cause,
		Op:      op,
	}
}

// IsInvalidRequest checks if an error is an InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var ie *InvalidRequestError
	return errors.As(err, &ie)
}

// IsPersistence checks if an error is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// AsInvalidRequest extracts an InvalidRequestError from an error chain.
func AsInvalidRequest(err error) (*InvalidRequestError, bool) {
	var ie *InvalidRequestError
	ok := errors.As(err, &ie)
	return ie, ok
}

// AsPersistence extracts a PersistenceError from an error chain.
func AsPersistence(err error) (*PersistenceError, bool) {
	var pe *PersistenceError
	ok := errors.As(err, &pe)
	return pe, ok
}

// Is is re-exported from the standard errors package for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is re-exported from the standard errors package for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is re-exported from the standard errors package for convenience.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted additional context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

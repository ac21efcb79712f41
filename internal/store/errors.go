package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a storage error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// GetStatus reports the HTTP status to huma.
func (e *Error) GetStatus() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	// ErrCapacity is returned when a team has no free slot.
	ErrCapacity = &Error{
		Code:    http.StatusConflict,
		Message: "capacity reached",
	}

	// ErrLimitReached is returned when a capped insert finds no room left.
	ErrLimitReached = &Error{
		Code:    http.StatusConflict,
		Message: "limit reached",
	}

	// ErrMembershipNotFound is returned when removing a member who is not on the team.
	ErrMembershipNotFound = &Error{
		Code:    http.StatusConflict,
		Message: "membership not found",
	}

	// ErrInvalidKey is returned for ids that cannot be part of a storage key.
	ErrInvalidKey = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid identifier",
	}

	// ErrTooManyConflicts is returned when a transaction keeps losing races.
	ErrTooManyConflicts = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "transaction conflict retries exhausted",
	}
)

// IndexConflictError reports which unique index rejected a write.
type IndexConflictError struct {
	Index string
	Key   string
}

func (e *IndexConflictError) Error() string {
	return fmt.Sprintf("index %s conflict on key %s: %s", e.Index, e.Key, ErrAlreadyExists.Message)
}

// Unwrap makes errors.Is(err, ErrAlreadyExists) hold.
func (e *IndexConflictError) Unwrap() error { return ErrAlreadyExists }

// ConflictIndex returns the index named by an *IndexConflictError in err's
// chain, or "" when there is none.
func ConflictIndex(err error) string {
	var ic *IndexConflictError
	if errors.As(err, &ic) {
		return ic.Index
	}
	return ""
}

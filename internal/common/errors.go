package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors. Handlers match on these with errors.Is to decide
// what the transport should do (reject, retry, dead-letter).
var (
	ErrNotFound          = errors.New("resource not found")
	ErrValidation        = errors.New("validation failed")
	ErrStoreUnavailable  = errors.New("record store unavailable")
	ErrQueueUnavailable  = errors.New("queue unavailable")
	ErrBlobUnavailable   = errors.New("blob store unavailable")
	ErrInconsistentState = errors.New("inconsistent job state")
	ErrDerivation        = errors.New("derivation failed")
	ErrFetch             = errors.New("source fetch failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

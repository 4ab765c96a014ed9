package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure surfaced to a caller.
//
// Ambient progress tracking never returns errors. Only explicit lab claims
// do, because their points depend on the ledger write succeeding.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// UserID identifies the affected user, if any.
	UserID string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotSignedIn indicates an operation that needs a user.
	ErrCodeNotSignedIn RuntimeErrorCode = "NOT_SIGNED_IN"

	// ErrCodeInvalidLab indicates a lab claim with an empty id or type, or
	// negative points.
	ErrCodeInvalidLab RuntimeErrorCode = "INVALID_LAB"

	// ErrCodeLabWriteFailed indicates the remote ledger insert failed for a
	// reason other than uniqueness.
	ErrCodeLabWriteFailed RuntimeErrorCode = "LAB_WRITE_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.UserID != "" {
		msg += fmt.Sprintf(" (user=%s)", e.UserID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsNotSignedIn returns true if err is a not-signed-in error.
// Uses errors.As to handle wrapped errors.
func IsNotSignedIn(err error) bool {
	return hasCode(err, ErrCodeNotSignedIn)
}

// IsLabWriteFailed returns true if err is a failed lab ledger write.
func IsLabWriteFailed(err error) bool {
	return hasCode(err, ErrCodeLabWriteFailed)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func errNotSignedIn() *RuntimeError {
	return &RuntimeError{Code: ErrCodeNotSignedIn, Message: "no user is signed in"}
}

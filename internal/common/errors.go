// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Column inference errors.
	ErrColumnIdentification = errors.New("column identification failed")
	ErrNoDateColumn         = fmt.Errorf("%w: unable to identify date column", ErrColumnIdentification)
	ErrNoAmountColumn       = fmt.Errorf("%w: unable to identify amount column", ErrColumnIdentification)

	// Row-level errors.
	ErrMalformedAmount = errors.New("amount field is not a valid decimal")

	// Confirmation errors.
	ErrEntryDiscarded = errors.New("entry discarded by reviewer")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

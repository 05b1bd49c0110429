package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrValidation   = errors.New("validation failed")

	// ErrStore hides persistence failures from callers. The cause is logged
	// where it is translated.
	ErrStore = errors.New("something went wrong")

	// Vault lock errors
	ErrPINNotSet = errors.New("PIN not set")
	ErrLocked    = errors.New("vault is locked")
)

// ValidationError carries a message meant for the end user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// LockoutError reports that PIN verification is suspended. Triggered is set
// when the failed attempt that produced it started the lockout.
type LockoutError struct {
	Remaining time.Duration
	Triggered bool
}

func (e *LockoutError) Error() string {
	if e.Triggered {
		return "Locked out for 1 minute"
	}
	return fmt.Sprintf("Too many attempts. Try again in %ds", e.Seconds())
}

// Seconds rounds the remaining lockout up to whole seconds.
func (e *LockoutError) Seconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// IncorrectPINError reports a wrong PIN that did not start a lockout.
type IncorrectPINError struct {
	AttemptsRemaining int
}

func (e *IncorrectPINError) Error() string {
	return fmt.Sprintf("Incorrect PIN. %d attempts left.", e.AttemptsRemaining)
}

// NotFoundError is ErrNotFound with a message meant for the end user.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

package payform

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a layout, frame or field legitimately does not
	// apply. It never aborts a fill.
	ErrNotFound = errors.New("not found")

	// ErrVerificationFailed means DOM typing left the value unchanged and
	// no native keyboard was available to retry.
	ErrVerificationFailed = errors.New("typed value not accepted")

	// ErrFallbackFailed means native typing also failed to change the value.
	ErrFallbackFailed = errors.New("fallback typing not accepted")

	// ErrRequiredElementTimeout means an element the caller cannot proceed
	// without never appeared.
	ErrRequiredElementTimeout = errors.New("required element timed out")

	ErrFrameGone     = errors.New("frame no longer resolvable")
	ErrInvalidValues = errors.New("invalid values")
)

// FillError provides detailed error context for one field or control.
type FillError struct {
	Field     FieldName
	Operation string
	Cause     error
	Details   string
}

func (e *FillError) Error() string {
	target := string(e.Field)
	if target == "" {
		target = "form"
	}
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s failed: %v", target, e.Operation, e.Cause)
	}
	return fmt.Sprintf("[%s] %s failed: %v - %s", target, e.Operation, e.Cause, e.Details)
}

func (e *FillError) Unwrap() error {
	return e.Cause
}

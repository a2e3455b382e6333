package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrNotReady           = errors.New("result not ready")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnknownStyle       = errors.New("unknown style")
	ErrServiceUnavailable = errors.New("generation service unavailable")
)

// FailureError reports a terminal remote failure, carrying whatever reason
// the generation service supplied.
type FailureError struct {
	Reason string
}

func (e *FailureError) Error() string {
	if e.Reason == "" {
		return "generation failed"
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

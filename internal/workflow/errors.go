package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when an actor without approval authority
	// attempts to approve or deny a record.
	ErrForbidden = errors.New("actor lacks approval authority")

	// ErrInvalidTransition is returned when a (status, verdict) pair has no
	// defined transition rule.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InvalidTransitionError carries the offending status/verdict pair. It wraps
// ErrInvalidTransition so callers can match with errors.Is.
type InvalidTransitionError struct {
	Status  Status
	Verdict Verdict
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("no transition from status %s with verdict %s", e.Status, e.Verdict)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

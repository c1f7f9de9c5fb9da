package booking

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDraftNotFound is returned for unknown or expired wizard drafts.
	ErrDraftNotFound = errors.New("booking: draft not found")

	// ErrDraftConfirmed is returned when a confirmed draft is modified.
	ErrDraftConfirmed = errors.New("booking: draft already confirmed")

	// ErrWrongStep is returned when an action is not available on the
	// draft's current step.
	ErrWrongStep = errors.New("booking: action not available on this step")
)

// StepIncompleteError lists the required fields missing on the current step.
type StepIncompleteError struct {
	Step    Step
	Missing []string
}

func (e *StepIncompleteError) Error() string {
	return fmt.Sprintf("booking: step %s incomplete: missing %s", e.Step, strings.Join(e.Missing, ", "))
}

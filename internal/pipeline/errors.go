package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput marks validation failures detected before any stage
	// runs. A pipeline rejected this way never starts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingPrecondition marks a stage whose required input artifacts
	// were absent at its turn.
	ErrMissingPrecondition = errors.New("missing precondition")
	// ErrPrerequisiteUnmet marks a stage whose declared prerequisite stages
	// left no satisfied checkpoint behind.
	ErrPrerequisiteUnmet = errors.New("prerequisite unmet")
	// ErrActionFailure marks a stage action that terminated abnormally.
	ErrActionFailure = errors.New("action failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrActionFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind reduces an error chain to a stable label for reports and the ledger.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrMissingPrecondition):
		return "missing_precondition"
	case errors.Is(err, ErrPrerequisiteUnmet):
		return "prerequisite_unmet"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrActionFailure):
		return "action_failure"
	default:
		return "failure"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}

package tasting

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationRejected means the request violates the caller's tier policy.
	ErrValidationRejected = errors.New("validation rejected")
	// ErrQuotaExceeded means the caller used up today's generations.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUpstreamGenerationFailed covers AI call failures and schema violations.
	ErrUpstreamGenerationFailed = errors.New("upstream generation failed")
	// ErrPersistenceDegraded marks a generated plan that could not be stored.
	ErrPersistenceDegraded = errors.New("persistence degraded")
	// ErrWorkflowStepExhausted marks a warmup step that ran out of attempts.
	ErrWorkflowStepExhausted = errors.New("workflow step exhausted")
)

// GenericFailureMessage is what users see for upstream and persistence failures.
const GenericFailureMessage = "We couldn't generate your tasting plan. Please try again."

// PolicyError carries a user-facing reason. Reason is shown verbatim.
type PolicyError struct {
	Kind   error
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }
func (e *PolicyError) Unwrap() error { return e.Kind }

func Rejected(reason string) error {
	return &PolicyError{Kind: ErrValidationRejected, Reason: reason}
}

func QuotaExceeded(reason string) error {
	return &PolicyError{Kind: ErrQuotaExceeded, Reason: reason}
}

// UpstreamFailure tags err as an upstream generation failure while keeping its detail for logs.
func UpstreamFailure(op string, err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUpstreamGenerationFailed, err))
}

// UserMessage returns the text safe to show a user for err.
func UserMessage(err error) string {
	var pe *PolicyError
	if errors.As(err, &pe) && pe.Reason != "" {
		return pe.Reason
	}
	return GenericFailureMessage
}

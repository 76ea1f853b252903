// Package services implements the arena's business logic on top of the store:
// competition and participant lifecycle, submission scoring, the hint engine,
// the LLM proxy, and rankings. Handlers translate the sentinel errors defined
// here into HTTP status codes.
package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services.
var (
	// ErrNotFound wraps store misses for competitions, problems,
	// participants, and submissions.
	ErrNotFound = errors.New("not found")

	// ErrParticipantTerminated rejects write actions for a participant that
	// already left the running state. The termination reason travels in the
	// wrapping message.
	ErrParticipantTerminated = errors.New("participant is terminated")

	// ErrInsufficientTokens rejects a hint whose cost exceeds the remaining
	// budget.
	ErrInsufficientTokens = errors.New("insufficient tokens")

	// ErrUpstreamLLM marks a failed call to the participant's LLM provider.
	// No tokens are debited for failed calls.
	ErrUpstreamLLM = errors.New("llm provider call failed")
)

// ValidationError is a 400-class input error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a field-scoped input error.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// terminatedError wraps ErrParticipantTerminated with the recorded reason so
// the HTTP layer can surface it.
func terminatedError(reason string) error {
	if reason == "" {
		reason = "unknown"
	}
	return fmt.Errorf("%w (reason: %s)", ErrParticipantTerminated, reason)
}

package errors

import (
	"fmt"

	"github.com/bruno-romeu/balm-api/internal/domain"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when there's a conflict (e.g., duplicate payment)
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrValidation is returned when validation fails
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrInvalidTransition is returned when an invalid order status transition is attempted
type ErrInvalidTransition struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// ErrInvalidDocument is returned when a payer tax id is missing or fails
// checksum validation. Not retryable: re-running cannot fix missing data.
type ErrInvalidDocument struct {
	Document string
	Reason   string
}

func (e *ErrInvalidDocument) Error() string {
	return fmt.Sprintf("invalid payer document %q: %s", e.Document, e.Reason)
}

// ErrRetryable is returned by the fulfillment worker when a carrier call
// fails transiently. The job queue re-schedules it up to the attempt ceiling.
type ErrRetryable struct {
	Step  string // carrier protocol step that failed (cart, checkout, generate, print, quote)
	Cause error
}

func (e *ErrRetryable) Error() string {
	return fmt.Sprintf("retryable failure at step %s: %v", e.Step, e.Cause)
}

func (e *ErrRetryable) Unwrap() error {
	return e.Cause
}

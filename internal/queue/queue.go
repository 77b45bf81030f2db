// Package queue dispatches shipping fulfillment jobs through Kafka. The API
// process publishes a job when a payment is first approved; the worker
// process consumes it, runs label generation, and re-publishes with an
// incremented attempt counter on retryable failure.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FulfillmentJob is one label-generation request for an order
type FulfillmentJob struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID string    `json:"payment_id,omitempty"`
	Attempt   int       `json:"attempt"`
	// NotBefore delays execution of a retried job; zero means run now
	NotBefore time.Time `json:"not_before,omitempty"`
}

// Enqueuer publishes fulfillment jobs; satisfied by *FulfillmentProducer
// and by test fakes
type Enqueuer interface {
	EnqueueFulfillment(ctx context.Context, job FulfillmentJob) error
}

// HandleFunc executes one fulfillment job
type HandleFunc func(ctx context.Context, job FulfillmentJob) error

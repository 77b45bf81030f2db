package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgerrors "github.com/bruno-romeu/balm-api/pkg/errors"
)

type captureEnqueuer struct {
	jobs []FulfillmentJob
	mu   sync.Mutex
}

func (c *captureEnqueuer) EnqueueFulfillment(_ context.Context, job FulfillmentJob) error {
	c.mu.Lock()
	c.jobs = append(c.jobs, job)
	c.mu.Unlock()
	return nil
}

func consumerForTest(enq Enqueuer) *FulfillmentConsumer {
	return &FulfillmentConsumer{
		enqueuer:    enq,
		topic:       "fulfillment",
		maxAttempts: 3,
		retryDelay:  time.Millisecond,
		logger:      zap.NewNop(),
	}
}

func messageFor(t *testing.T, job FulfillmentJob) *sarama.ConsumerMessage {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "fulfillment", Value: payload}
}

func TestConsumer_RetryableFailureRepublishesWithDelay(t *testing.T) {
	enq := &captureEnqueuer{}
	c := consumerForTest(enq)
	orderID := uuid.New()

	before := time.Now()
	c.handleMessage(context.Background(), messageFor(t, FulfillmentJob{OrderID: orderID}), func(ctx context.Context, job FulfillmentJob) error {
		return &pkgerrors.ErrRetryable{Step: "checkout", Cause: fmt.Errorf("timeout")}
	})

	require.Len(t, enq.jobs, 1)
	assert.Equal(t, orderID, enq.jobs[0].OrderID)
	assert.Equal(t, 1, enq.jobs[0].Attempt)
	assert.True(t, enq.jobs[0].NotBefore.After(before))
}

func TestConsumer_ExhaustedAttemptsAreNotRepublished(t *testing.T) {
	enq := &captureEnqueuer{}
	c := consumerForTest(enq)

	// Attempt 2 of maxAttempts 3: the next failure is the last
	c.handleMessage(context.Background(), messageFor(t, FulfillmentJob{OrderID: uuid.New(), Attempt: 2}), func(ctx context.Context, job FulfillmentJob) error {
		return &pkgerrors.ErrRetryable{Step: "print", Cause: fmt.Errorf("timeout")}
	})

	assert.Empty(t, enq.jobs)
}

func TestConsumer_FatalErrorIsNotRepublished(t *testing.T) {
	enq := &captureEnqueuer{}
	c := consumerForTest(enq)

	c.handleMessage(context.Background(), messageFor(t, FulfillmentJob{OrderID: uuid.New()}), func(ctx context.Context, job FulfillmentJob) error {
		return fmt.Errorf("order not found")
	})

	assert.Empty(t, enq.jobs)
}

func TestConsumer_SuccessDoesNothingFurther(t *testing.T) {
	enq := &captureEnqueuer{}
	c := consumerForTest(enq)

	handled := 0
	c.handleMessage(context.Background(), messageFor(t, FulfillmentJob{OrderID: uuid.New()}), func(ctx context.Context, job FulfillmentJob) error {
		handled++
		return nil
	})

	assert.Equal(t, 1, handled)
	assert.Empty(t, enq.jobs)
}

func TestConsumer_MalformedMessageIsDropped(t *testing.T) {
	enq := &captureEnqueuer{}
	c := consumerForTest(enq)

	handled := 0
	c.handleMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")}, func(ctx context.Context, job FulfillmentJob) error {
		handled++
		return nil
	})

	assert.Zero(t, handled)
	assert.Empty(t, enq.jobs)
}

func TestConsumer_HonorsNotBefore(t *testing.T) {
	c := consumerForTest(&captureEnqueuer{})

	notBefore := time.Now().Add(30 * time.Millisecond)
	var ranAt time.Time
	c.handleMessage(context.Background(), messageFor(t, FulfillmentJob{OrderID: uuid.New(), NotBefore: notBefore}), func(ctx context.Context, job FulfillmentJob) error {
		ranAt = time.Now()
		return nil
	})

	assert.False(t, ranAt.Before(notBefore))
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/metric"
	pkgerrors "github.com/bruno-romeu/balm-api/pkg/errors"
)

// FulfillmentConsumer reads jobs from the fulfillment topic and runs them
// through a handler. Retryable failures are re-published with an incremented
// attempt counter and a delay; fatal failures and exhausted retries are
// logged and dropped.
type FulfillmentConsumer struct {
	consumer    sarama.Consumer
	enqueuer    Enqueuer
	topic       string
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

func NewFulfillmentConsumer(brokers []string, topic string, enqueuer Enqueuer, maxAttempts int, retryDelay time.Duration, logger *zap.Logger) (*FulfillmentConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &FulfillmentConsumer{
		consumer:    consumer,
		enqueuer:    enqueuer,
		topic:       topic,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}, nil
}

// Run consumes the topic's single partition until ctx is canceled
func (c *FulfillmentConsumer) Run(ctx context.Context, handle HandleFunc) error {
	partitionConsumer, err := c.consumer.ConsumePartition(c.topic, 0, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("failed to consume partition: %w", err)
	}
	defer func() {
		if err := partitionConsumer.Close(); err != nil {
			c.logger.Warn("Failed to close partition consumer", zap.Error(err))
		}
	}()

	c.logger.Info("Fulfillment consumer started", zap.String("topic", c.topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Fulfillment consumer stopping")
			return nil
		case err := <-partitionConsumer.Errors():
			c.logger.Error("Kafka consumer error", zap.Error(err))
		case msg := <-partitionConsumer.Messages():
			c.handleMessage(ctx, msg, handle)
		}
	}
}

func (c *FulfillmentConsumer) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage, handle HandleFunc) {
	var job FulfillmentJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		c.logger.Error("Dropping malformed fulfillment job",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		metric.FulfillmentJobsTotal.WithLabelValues("fatal").Inc()
		return
	}

	// Honor the retry delay of re-published jobs
	if wait := time.Until(job.NotBefore); wait > 0 {
		c.logger.Info("Delaying fulfillment job",
			zap.String("order_id", job.OrderID.String()),
			zap.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	start := time.Now()
	err := handle(ctx, job)
	metric.FulfillmentDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		metric.FulfillmentJobsTotal.WithLabelValues("success").Inc()
		return
	}

	var retryable *pkgerrors.ErrRetryable
	if !errors.As(err, &retryable) {
		c.logger.Error("Fulfillment job failed permanently",
			zap.String("order_id", job.OrderID.String()),
			zap.Int("attempt", job.Attempt),
			zap.Error(err))
		metric.FulfillmentJobsTotal.WithLabelValues("fatal").Inc()
		return
	}

	if job.Attempt+1 >= c.maxAttempts {
		c.logger.Error("Fulfillment retries exhausted",
			zap.String("order_id", job.OrderID.String()),
			zap.Int("attempt", job.Attempt),
			zap.String("step", retryable.Step),
			zap.Error(err))
		metric.FulfillmentJobsTotal.WithLabelValues("exhausted").Inc()
		return
	}

	retry := FulfillmentJob{
		OrderID:   job.OrderID,
		PaymentID: job.PaymentID,
		Attempt:   job.Attempt + 1,
		NotBefore: time.Now().Add(c.retryDelay),
	}
	if err := c.enqueuer.EnqueueFulfillment(ctx, retry); err != nil {
		c.logger.Error("Failed to re-publish fulfillment job",
			zap.String("order_id", job.OrderID.String()),
			zap.Error(err))
		metric.FulfillmentJobsTotal.WithLabelValues("fatal").Inc()
		return
	}

	c.logger.Warn("Fulfillment job scheduled for retry",
		zap.String("order_id", job.OrderID.String()),
		zap.Int("next_attempt", retry.Attempt),
		zap.String("step", retryable.Step),
		zap.Error(err))
	metric.FulfillmentJobsTotal.WithLabelValues("retryable").Inc()
}

func (c *FulfillmentConsumer) Close() error {
	return c.consumer.Close()
}

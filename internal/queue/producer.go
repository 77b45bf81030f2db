package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// FulfillmentProducer publishes jobs to the fulfillment topic
type FulfillmentProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewFulfillmentProducer(brokers []string, topic string, logger *zap.Logger) (*FulfillmentProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &FulfillmentProducer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

// EnqueueFulfillment publishes one job, keyed by order ID so retries of the
// same order land on the same partition
func (p *FulfillmentProducer) EnqueueFulfillment(_ context.Context, job FulfillmentJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal fulfillment job: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(job.OrderID.String()),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish fulfillment job: %w", err)
	}

	p.logger.Info("Fulfillment job published",
		zap.String("order_id", job.OrderID.String()),
		zap.Int("attempt", job.Attempt),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))

	return nil
}

func (p *FulfillmentProducer) Close() error {
	return p.producer.Close()
}

package queue

import (
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// EnsureTopicExists creates the fulfillment topic when it is missing
func EnsureTopicExists(brokers []string, topic string, logger *zap.Logger) error {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0

	admin, err := sarama.NewClusterAdmin(brokers, config)
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer func() {
		if err := admin.Close(); err != nil {
			logger.Warn("Failed to close kafka admin", zap.Error(err))
		}
	}()

	topics, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("failed to list kafka topics: %w", err)
	}
	if _, exists := topics[topic]; exists {
		logger.Info("Kafka topic already exists", zap.String("topic", topic))
		return nil
	}

	retention := "604800000" // 7 days
	topicDetails := &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
		ConfigEntries: map[string]*string{
			"retention.ms": &retention,
		},
	}

	if err := admin.CreateTopic(topic, topicDetails, false); err != nil {
		return fmt.Errorf("failed to create kafka topic: %w", err)
	}

	logger.Info("Kafka topic created", zap.String("topic", topic))
	return nil
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/melhorenvio"
	"github.com/bruno-romeu/balm-api/internal/notify"
	"github.com/bruno-romeu/balm-api/internal/queue"
	"github.com/bruno-romeu/balm-api/internal/repository/postgres"
	"github.com/bruno-romeu/balm-api/internal/service"
	"github.com/bruno-romeu/balm-api/internal/trace"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting fulfillment worker",
		zap.String("environment", cfg.Environment),
		zap.Int("max_attempts", cfg.Fulfillment.MaxAttempts),
		zap.Duration("retry_delay", cfg.Fulfillment.RetryDelay),
	)

	tracerProvider, err := trace.InitTracer(context.Background(), "balm-worker")
	if err != nil {
		logger.Warn("Tracing disabled", zap.Error(err))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(ctx); err != nil {
				logger.Warn("Failed to shut down tracer", zap.Error(err))
			}
		}()
	}

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)

	if err := queue.EnsureTopicExists(cfg.Kafka.Brokers, cfg.Kafka.FulfillmentTopic, logger); err != nil {
		logger.Fatal("Failed to ensure kafka topic", zap.Error(err))
	}

	// Retries are re-published, so the worker needs a producer too
	producer, err := queue.NewFulfillmentProducer(cfg.Kafka.Brokers, cfg.Kafka.FulfillmentTopic, logger)
	if err != nil {
		logger.Fatal("Failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	consumer, err := queue.NewFulfillmentConsumer(
		cfg.Kafka.Brokers, cfg.Kafka.FulfillmentTopic, producer,
		cfg.Fulfillment.MaxAttempts, cfg.Fulfillment.RetryDelay, logger)
	if err != nil {
		logger.Fatal("Failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	meClient := melhorenvio.NewClient(cfg.MelhorEnvio, logger)
	mailer := notify.NewClient(cfg.Resend, logger)
	fulfillment := service.NewFulfillmentService(repos, meClient, mailer, cfg.MelhorEnvio.Sender, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx, fulfillment.ProcessOrder)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down worker...")
		cancel()
		<-done
	case err := <-done:
		cancel()
		if err != nil {
			logger.Fatal("Consumer stopped with error", zap.Error(err))
		}
	}

	logger.Info("Worker exited")
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/api"
	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/melhorenvio"
	"github.com/bruno-romeu/balm-api/internal/mercadopago"
	"github.com/bruno-romeu/balm-api/internal/notify"
	"github.com/bruno-romeu/balm-api/internal/queue"
	"github.com/bruno-romeu/balm-api/internal/repository/postgres"
	"github.com/bruno-romeu/balm-api/internal/service"
	"github.com/bruno-romeu/balm-api/internal/trace"
)

func main() {
	// Load .env when present; real deployments set environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting Balm API server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
	)

	// Initialize tracing
	tracerProvider, err := trace.InitTracer(context.Background(), "balm-api")
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

	// Initialize database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	repos := postgres.NewRepositories(db, logger)

	// Kafka: fulfillment topic and producer
	if err := queue.EnsureTopicExists(cfg.Kafka.Brokers, cfg.Kafka.FulfillmentTopic, logger); err != nil {
		logger.Fatal("Failed to ensure kafka topic", zap.Error(err))
	}
	producer, err := queue.NewFulfillmentProducer(cfg.Kafka.Brokers, cfg.Kafka.FulfillmentTopic, logger)
	if err != nil {
		logger.Fatal("Failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// External clients
	mpClient := mercadopago.NewClient(cfg.MercadoPago, logger)
	meClient := melhorenvio.NewClient(cfg.MelhorEnvio, logger)
	mailer := notify.NewClient(cfg.Resend, logger)

	// Services
	svcs := api.Services{
		Order:       service.NewOrderService(repos, logger),
		Payment:     service.NewPaymentService(repos, mpClient, producer, cfg.MercadoPago, logger),
		Shipping:    service.NewShippingService(repos, meClient, cfg.MelhorEnvio.Sender, logger),
		Fulfillment: service.NewFulfillmentService(repos, meClient, mailer, cfg.MelhorEnvio.Sender, logger),
	}

	// Initialize router
	router := api.NewRouter(cfg, svcs, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

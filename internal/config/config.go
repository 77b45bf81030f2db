package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	Database    DatabaseConfig
	MercadoPago MercadoPagoConfig
	MelhorEnvio MelhorEnvioConfig
	Resend      ResendConfig
	Kafka       KafkaConfig
	Fulfillment FulfillmentConfig
	Admin       AdminConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MercadoPagoConfig is used to create checkout preferences and fetch
// payment details for webhook reconciliation
type MercadoPagoConfig struct {
	BaseURL         string
	AccessToken     string
	WebhookSecret   string // verifies the x-signature header on inbound webhooks
	NotificationURL string // public URL of POST /v1/checkout/payments/webhook
}

// MelhorEnvioConfig is used for shipping quotes and label generation
type MelhorEnvioConfig struct {
	BaseURL   string
	Token     string
	UserAgent string // Melhor Envio requires a contact e-mail as User-Agent
	Sender    SenderConfig
}

// SenderConfig is the warehouse/origin data stamped on every label
type SenderConfig struct {
	Name       string
	Phone      string
	Email      string
	Document   string
	PostalCode string
	Street     string
	Number     string
	District   string
	City       string
	StateAbbr  string
}

// ResendConfig is used for transactional e-mail
type ResendConfig struct {
	APIKey    string
	FromEmail string
}

type KafkaConfig struct {
	Brokers          []string
	FulfillmentTopic string
}

// FulfillmentConfig bounds the label-generation retry policy
type FulfillmentConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

type AdminConfig struct {
	APIKeyHash string // bcrypt hash of the admin API key
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com")
	viper.SetDefault("MELHOR_ENVIO_BASE_URL", "https://sandbox.melhorenvio.com.br/api/v2/me")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("KAFKA_FULFILLMENT_TOPIC", "shipping.fulfillment")
	viper.SetDefault("FULFILLMENT_MAX_ATTEMPTS", "3")
	viper.SetDefault("FULFILLMENT_RETRY_DELAY", "5m")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	retryDelay, err := time.ParseDuration(getEnvOrViper("FULFILLMENT_RETRY_DELAY", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid FULFILLMENT_RETRY_DELAY: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "balm"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		MercadoPago: MercadoPagoConfig{
			BaseURL:         strings.TrimSpace(getEnvOrViper("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com")),
			AccessToken:     strings.TrimSpace(getEnvOrViper("MERCADOPAGO_ACCESS_TOKEN", "")),
			WebhookSecret:   strings.TrimSpace(getEnvOrViper("MERCADOPAGO_WEBHOOK_SECRET", "")),
			NotificationURL: strings.TrimSpace(getEnvOrViper("MERCADOPAGO_NOTIFICATION_URL", "")),
		},
		MelhorEnvio: MelhorEnvioConfig{
			BaseURL:   strings.TrimSpace(getEnvOrViper("MELHOR_ENVIO_BASE_URL", "https://sandbox.melhorenvio.com.br/api/v2/me")),
			Token:     strings.TrimSpace(getEnvOrViper("MELHOR_ENVIO_TOKEN", "")),
			UserAgent: getEnvOrViper("MELHOR_ENVIO_USER_AGENT", "suporte.balm@gmail.com"),
			Sender: SenderConfig{
				Name:       getEnvOrViper("SENDER_NAME", ""),
				Phone:      getEnvOrViper("SENDER_PHONE", ""),
				Email:      getEnvOrViper("SENDER_EMAIL", ""),
				Document:   getEnvOrViper("SENDER_DOCUMENT", ""),
				PostalCode: getEnvOrViper("SENDER_POSTAL_CODE", ""),
				Street:     getEnvOrViper("SENDER_STREET", ""),
				Number:     getEnvOrViper("SENDER_NUMBER", ""),
				District:   getEnvOrViper("SENDER_DISTRICT", ""),
				City:       getEnvOrViper("SENDER_CITY", ""),
				StateAbbr:  getEnvOrViper("SENDER_STATE", ""),
			},
		},
		Resend: ResendConfig{
			APIKey:    strings.TrimSpace(getEnvOrViper("RESEND_API_KEY", "")),
			FromEmail: getEnvOrViper("RESEND_FROM_EMAIL", "pedidos@balm.com.br"),
		},
		Kafka: KafkaConfig{
			Brokers:          strings.Split(getEnvOrViper("KAFKA_BROKERS", "localhost:9092"), ","),
			FulfillmentTopic: getEnvOrViper("KAFKA_FULFILLMENT_TOPIC", "shipping.fulfillment"),
		},
		Fulfillment: FulfillmentConfig{
			MaxAttempts: viper.GetInt("FULFILLMENT_MAX_ATTEMPTS"),
			RetryDelay:  retryDelay,
		},
		Admin: AdminConfig{
			APIKeyHash: strings.TrimSpace(getEnvOrViper("ADMIN_API_KEY_HASH", "")),
		},
	}
	if cfg.Fulfillment.MaxAttempts <= 0 {
		cfg.Fulfillment.MaxAttempts = 3
	}

	// Validate required fields
	if cfg.MercadoPago.AccessToken == "" {
		return nil, fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required")
	}
	if cfg.MelhorEnvio.Token == "" {
		return nil, fmt.Errorf("MELHOR_ENVIO_TOKEN is required")
	}
	if cfg.Environment == "production" && cfg.MercadoPago.WebhookSecret == "" {
		return nil, fmt.Errorf("MERCADOPAGO_WEBHOOK_SECRET is required in production")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

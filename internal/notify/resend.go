// Package notify sends transactional e-mail through the Resend API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
)

// Dispatcher is the surface the services depend on
type Dispatcher interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Client calls the Resend e-mail API
type Client struct {
	apiKey     string
	fromEmail  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Resend HTTP client
func NewClient(cfg config.ResendConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Send delivers one e-mail. Not configured means a silent no-op so local
// environments work without an API key.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if c.apiKey == "" {
		c.logger.Debug("Resend not configured, skipping e-mail", zap.String("to", to))
		return nil
	}

	payload := map[string]interface{}{
		"from":    c.fromEmail,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal e-mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Resend request failed", zap.String("to", to), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend returned %d: %s", resp.StatusCode, string(respBody))
	}

	c.logger.Info("E-mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

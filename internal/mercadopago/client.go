// Package mercadopago is a thin HTTP client for the Mercado Pago checkout
// API. The workflow only needs two calls: creating a checkout preference and
// fetching payment details during webhook reconciliation.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
)

// API is the surface the services depend on; satisfied by *Client and by
// test fakes.
type API interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// PreferenceItem is one line of a checkout preference
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// PreferencePayer identifies the buyer
type PreferencePayer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PreferenceRequest is the payload for creating a checkout preference.
// ExternalReference is the local order id; the provider echoes it back in
// webhook payment payloads so the webhook can resolve the order.
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	Payer             PreferencePayer  `json:"payer"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

// Preference is the created checkout session
type Preference struct {
	ID         string `json:"id"`
	InitPoint  string `json:"init_point"`
	PaymentURL string `json:"-"`
}

// Payment is the provider-side payment detail used for reconciliation
type Payment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	Payer             struct {
		Identification struct {
			Type   string `json:"type"`
			Number string `json:"number"`
		} `json:"identification"`
	} `json:"payer"`
}

// PayerDocument returns the payer tax id from the payload, empty when absent
func (p *Payment) PayerDocument() string {
	return strings.TrimSpace(p.Payer.Identification.Number)
}

// Client calls the Mercado Pago REST API
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a Mercado Pago HTTP client
func NewClient(cfg config.MercadoPagoConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// CreatePreference creates a checkout preference and returns the payment URL
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preference request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/preferences", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Mercado Pago preference request failed", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mercadopago returned %d: %s", resp.StatusCode, string(respBody))
	}

	var pref Preference
	if err := json.Unmarshal(respBody, &pref); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preference: %w", err)
	}
	pref.PaymentURL = pref.InitPoint

	return &pref, nil
}

// GetPayment fetches full payment details for a provider payment id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("Mercado Pago payment fetch failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("mercadopago payment %s not found", paymentID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mercadopago returned %d: %s", resp.StatusCode, string(respBody))
	}

	var payment Payment
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
	}

	return &payment, nil
}

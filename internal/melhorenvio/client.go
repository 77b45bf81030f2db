// Package melhorenvio is an HTTP client for the Melhor Envio shipping API.
// Label generation is a four-step protocol: add the shipment to the cart,
// check it out, generate the label, then fetch the printable URL.
package melhorenvio

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

// API is the surface the fulfillment service depends on
type API interface {
	Calculate(ctx context.Context, req QuoteRequest) ([]QuoteService, error)
	AddToCart(ctx context.Context, payload CartPayload) (*CartEntry, error)
	Checkout(ctx context.Context, orderIDs []string) error
	GenerateLabels(ctx context.Context, orderIDs []string) error
	PrintLabels(ctx context.Context, orderIDs []string) (string, error)
}

// Package describes the aggregate parcel being quoted or shipped
type Package struct {
	Weight float64 `json:"weight"`
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// QuoteRequest asks for available services between two postal codes
type QuoteRequest struct {
	FromPostalCode string
	ToPostalCode   string
	Package        Package
	InsuranceValue float64
}

// QuoteService is one carrier service option returned by a quote
type QuoteService struct {
	ID           json.Number `json:"id"`
	Name         string      `json:"name"`
	Price        string      `json:"price"`
	DeliveryTime int         `json:"delivery_time"`
	Error        string      `json:"error,omitempty"`
}

// PriceValue parses the service price, returning a large sentinel on failure
// so broken entries sort last in cheapest-first ordering
func (s QuoteService) PriceValue() float64 {
	var v float64
	if _, err := fmt.Sscanf(s.Price, "%f", &v); err != nil {
		return 999999
	}
	return v
}

// Party is the sender or recipient on a shipment
type Party struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Document   string `json:"document"`
	PostalCode string `json:"postal_code"`
	Address    string `json:"address"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district"`
	City       string `json:"city"`
	StateAbbr  string `json:"state_abbr"`
	CountryID  string `json:"country_id"`
}

// CartProduct is one declared product on the shipment
type CartProduct struct {
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitaryValue float64 `json:"unitary_value"`
}

// CartOptions are shipment options
type CartOptions struct {
	InsuranceValue float64 `json:"insurance_value"`
	Receipt        bool    `json:"receipt"`
	OwnHand        bool    `json:"own_hand"`
	Reverse        bool    `json:"reverse"`
	NonCommercial  bool    `json:"non_commercial"`
	Platform       string  `json:"platform"`
}

// CartPayload creates a shipment cart entry
type CartPayload struct {
	Service  string        `json:"service"`
	From     Party         `json:"from"`
	To       Party         `json:"to"`
	Products []CartProduct `json:"products"`
	Volumes  []Package     `json:"volumes"`
	Options  CartOptions   `json:"options"`
}

// CartEntry is the created shipment entry
type CartEntry struct {
	ID       string `json:"id"`
	Tracking string `json:"tracking"`
}

// Client calls the Melhor Envio API
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Melhor Envio HTTP client
func NewClient(cfg config.MelhorEnvioConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Calculate quotes available services for a package between two postal codes
func (c *Client) Calculate(ctx context.Context, req QuoteRequest) ([]QuoteService, error) {
	payload := map[string]interface{}{
		"from":    map[string]string{"postal_code": req.FromPostalCode},
		"to":      map[string]string{"postal_code": req.ToPostalCode},
		"package": req.Package,
		"options": map[string]interface{}{
			"insurance_value": req.InsuranceValue,
			"receipt":         false,
			"own_hand":        false,
		},
	}

	body, err := c.post(ctx, "/shipment/calculate", payload, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var services []QuoteService
	if err := json.Unmarshal(body, &services); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote response: %w", err)
	}

	return services, nil
}

// AddToCart creates a shipment cart entry (step a of label generation)
func (c *Client) AddToCart(ctx context.Context, payload CartPayload) (*CartEntry, error) {
	body, err := c.post(ctx, "/cart", payload, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var entry CartEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart response: %w", err)
	}
	return &entry, nil
}

// Checkout purchases the cart entries (step b)
func (c *Client) Checkout(ctx context.Context, orderIDs []string) error {
	_, err := c.post(ctx, "/shipment/checkout", map[string]interface{}{"orders": orderIDs}, http.StatusOK)
	return err
}

// GenerateLabels generates labels for purchased shipments (step c)
func (c *Client) GenerateLabels(ctx context.Context, orderIDs []string) error {
	_, err := c.post(ctx, "/shipment/generate", map[string]interface{}{"orders": orderIDs}, http.StatusOK)
	return err
}

// PrintLabels fetches the printable label URL (step d)
func (c *Client) PrintLabels(ctx context.Context, orderIDs []string) (string, error) {
	body, err := c.post(ctx, "/shipment/print", map[string]interface{}{"mode": "private", "orders": orderIDs}, http.StatusOK)
	if err != nil {
		return "", err
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal print response: %w", err)
	}
	return out.URL, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, wantStatus int) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Melhor Envio request failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("melhorenvio %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

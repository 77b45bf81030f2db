package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/metric"
	"github.com/bruno-romeu/balm-api/internal/service"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// HandleCreateCheckout handles POST /v1/checkout/payments
func HandleCreateCheckout(payments *service.PaymentService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		resp, err := payments.CreateCheckout(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// webhookBody is the JSON shape of a Mercado Pago webhook. Older
// notifications carry topic/resource in the body, or topic/id query
// parameters, instead of type/data.id.
type webhookBody struct {
	Type     string `json:"type"`
	Action   string `json:"action,omitempty"`
	Topic    string `json:"topic"`
	Resource string `json:"resource"`
	Data     struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// HandlePaymentWebhook handles POST /v1/checkout/payments/webhook.
// Provider redeliveries are expected: the handler acknowledges with 200
// even when processing fails, so the provider's retry loop, not an error
// response, drives redelivery. Only a malformed request gets a 4xx.
func HandlePaymentWebhook(payments *service.PaymentService, cfg config.MercadoPagoConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		notification, ok := parseWebhook(c)
		if !ok {
			metric.WebhookNotificationsTotal.WithLabelValues("invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed notification"})
			return
		}

		if cfg.WebhookSecret != "" {
			if err := verifySignature(c, cfg.WebhookSecret, notification.PaymentID); err != nil {
				logger.Warn("Webhook signature rejected", zap.Error(err))
				metric.WebhookNotificationsTotal.WithLabelValues("invalid").Inc()
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
				return
			}
		}

		if err := payments.ProcessNotification(c.Request.Context(), notification); err != nil {
			// Validation failures mean the notification can never succeed;
			// everything else still gets a 200 so the provider does not
			// hammer a broken backend
			if _, isValidation := err.(*errors.ErrValidation); isValidation {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			logger.Error("Webhook processing failed",
				zap.String("payment_id", notification.PaymentID),
				zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}

// parseWebhook folds the provider's notification shapes into one form:
// a JSON body with type/data.id, a legacy body with topic/resource, or
// topic/id query parameters.
func parseWebhook(c *gin.Context) (service.WebhookNotification, bool) {
	var n service.WebhookNotification

	if topic := c.Query("topic"); topic != "" {
		n.Type = topic
		n.PaymentID = c.Query("id")
		return n, n.PaymentID != "" || n.Type != "payment"
	}
	if t := c.Query("type"); t != "" && c.Query("data.id") != "" {
		n.Type = t
		n.PaymentID = c.Query("data.id")
		return n, true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		return n, false
	}
	var parsed webhookBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return n, false
	}
	if parsed.Type != "" {
		n.Type = parsed.Type
		n.PaymentID = parsed.Data.ID.String()
		return n, true
	}
	if parsed.Topic != "" {
		// Legacy body: the payment id is the last segment of the resource URL
		n.Type = parsed.Topic
		if idx := strings.LastIndex(parsed.Resource, "/"); idx >= 0 {
			n.PaymentID = parsed.Resource[idx+1:]
		} else {
			n.PaymentID = parsed.Resource
		}
		return n, true
	}
	return n, false
}

// verifySignature checks the provider's x-signature header: an HMAC-SHA256
// over "id:<data.id>;request-id:<x-request-id>;ts:<ts>;" keyed with the
// webhook secret.
func verifySignature(c *gin.Context, secret, paymentID string) error {
	header := c.GetHeader("x-signature")
	if header == "" {
		return fmt.Errorf("missing x-signature header")
	}

	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "ts":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return fmt.Errorf("incomplete x-signature header")
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;",
		strings.ToLower(paymentID), c.GetHeader("x-request-id"), ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// HandleQuoteShipping handles POST /v1/shipping/quote
func HandleQuoteShipping(shippings *service.ShippingService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.QuoteShippingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		options, err := shippings.Quote(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"services": options})
	}
}

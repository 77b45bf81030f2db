package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/mercadopago"
	"github.com/bruno-romeu/balm-api/internal/service"
)

type stubProvider struct {
	getErr error
}

func (s *stubProvider) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubProvider) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	return nil, s.getErr
}

func webhookRouter(cfg config.MercadoPagoConfig, provider mercadopago.API) *gin.Engine {
	gin.SetMode(gin.TestMode)
	payments := service.NewPaymentService(nil, provider, nil, cfg, zap.NewNop())
	r := gin.New()
	r.POST("/webhook", HandlePaymentWebhook(payments, cfg, zap.NewNop()))
	return r
}

func signWebhook(secret, paymentID, requestID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", paymentID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestPaymentWebhook_MalformedBodyIs400(t *testing.T) {
	r := webhookRouter(config.MercadoPagoConfig{}, &stubProvider{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString("not json"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentWebhook_InvalidSignatureIs401(t *testing.T) {
	cfg := config.MercadoPagoConfig{WebhookSecret: "shhh"}
	r := webhookRouter(cfg, &stubProvider{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook?type=payment&data.id=123", nil)
	req.Header.Set("x-signature", "ts=1700000000,v1=deadbeef")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentWebhook_ValidSignatureProcessingErrorStill200(t *testing.T) {
	cfg := config.MercadoPagoConfig{WebhookSecret: "shhh"}
	// The provider fetch fails: the handler must still acknowledge so the
	// provider's own retry loop drives redelivery
	r := webhookRouter(cfg, &stubProvider{getErr: fmt.Errorf("provider down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook?type=payment&data.id=123", nil)
	req.Header.Set("x-request-id", "req-1")
	req.Header.Set("x-signature", signWebhook("shhh", "123", "req-1", "1700000000"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentWebhook_LegacyTopicShapeAccepted(t *testing.T) {
	r := webhookRouter(config.MercadoPagoConfig{}, &stubProvider{getErr: fmt.Errorf("provider down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook?topic=payment&id=456", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentWebhook_NonPaymentTopicIgnoredWith200(t *testing.T) {
	r := webhookRouter(config.MercadoPagoConfig{}, &stubProvider{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook?topic=merchant_order&id=789", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseWebhook_JSONBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook",
		bytes.NewBufferString(`{"type":"payment","action":"payment.updated","data":{"id":12345}}`))

	n, ok := parseWebhook(c)

	require.True(t, ok)
	assert.Equal(t, "payment", n.Type)
	assert.Equal(t, "12345", n.PaymentID)
}

func TestParseWebhook_LegacyJSONBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	// Older notifications carry the payment id as the tail of a resource URL
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook",
		bytes.NewBufferString(`{"topic":"payment","resource":"https://api.mercadopago.com/v1/payments/67890"}`))

	n, ok := parseWebhook(c)

	require.True(t, ok)
	assert.Equal(t, "payment", n.Type)
	assert.Equal(t, "67890", n.PaymentID)
}

func TestPaymentWebhook_LegacyBodyShapeAccepted(t *testing.T) {
	r := webhookRouter(config.MercadoPagoConfig{}, &stubProvider{getErr: fmt.Errorf("provider down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook",
		bytes.NewBufferString(`{"topic":"payment","resource":"https://api.mercadopago.com/v1/payments/456"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

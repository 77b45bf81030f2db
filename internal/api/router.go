package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bruno-romeu/balm-api/internal/api/handlers"
	"github.com/bruno-romeu/balm-api/internal/api/middleware"
	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/metric"
	"github.com/bruno-romeu/balm-api/internal/service"
)

// Services groups everything the router hands to handlers
type Services struct {
	Order       *service.OrderService
	Payment     *service.PaymentService
	Shipping    *service.ShippingService
	Fulfillment *service.FulfillmentService
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, svcs Services, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))
	router.Use(otelgin.Middleware("balm-api"))

	// Root: friendly response so GET / returns 200 instead of 404
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Balm Order API",
			"endpoints": []string{
				"GET /health",
				"GET /metrics",
				"POST /v1/orders",
				"GET /v1/orders/:id",
				"POST /v1/orders/:id/cancel",
				"POST /v1/checkout/payments",
				"POST /v1/checkout/payments/webhook",
				"POST /v1/shipping/quote",
				"GET /v1/admin/orders",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	{
		v1.POST("/orders", handlers.HandleCreateOrder(svcs.Order, logger))
		v1.GET("/orders", handlers.HandleListOrders(svcs.Order, logger))
		v1.GET("/orders/:id", handlers.HandleGetOrder(svcs.Order, logger))
		v1.POST("/orders/:id/cancel", handlers.HandleCancelOrder(svcs.Order, logger))

		v1.POST("/checkout/payments", handlers.HandleCreateCheckout(svcs.Payment, logger))
		v1.POST("/checkout/payments/webhook",
			middleware.RateLimit(rate.Limit(20), 40),
			handlers.HandlePaymentWebhook(svcs.Payment, cfg.MercadoPago, logger))

		v1.POST("/shipping/quote", handlers.HandleQuoteShipping(svcs.Shipping, logger))

		// Admin routes (require API key)
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AdminAuth(cfg.Admin.APIKeyHash, logger))
		{
			adminRoutes.GET("/orders", handlers.HandleAdminListOrders(svcs.Order, logger))
			adminRoutes.PATCH("/orders/:id/status", handlers.HandleAdminUpdateStatus(svcs.Order, logger))
			adminRoutes.POST("/orders/:id/generate-shipping", handlers.HandleAdminGenerateShipping(svcs.Order, svcs.Fulfillment, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests and records latency metrics
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		metric.ObserveRequest(time.Since(start), status)
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/service"
)

var validate = validator.New()

// HandleCreateOrder handles POST /v1/orders
func HandleCreateOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": err.Error()})
			return
		}

		order, err := orders.CreateFromCart(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":            order.ID,
			"status":        order.Status,
			"total":         order.Total,
			"shipping_cost": order.ShippingCost,
		})
	}
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		detail, err := orders.GetOrderDetail(c.Request.Context(), id)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, service.ToOrderDetailResponse(detail))
	}
}

// HandleListOrders handles GET /v1/orders?customer_id=...
func HandleListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID, err := uuid.Parse(c.Query("customer_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id query parameter required"})
			return
		}

		limit, offset := paginationParams(c)
		list, err := orders.ListByCustomer(c.Request.Context(), customerID, limit, offset)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		resp := make([]service.OrderResponse, 0, len(list))
		for _, o := range list {
			resp = append(resp, service.ToOrderResponse(o))
		}
		c.JSON(http.StatusOK, gin.H{"orders": resp, "count": len(resp)})
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel. Cancellation
// restocks the order's reserved items.
func HandleCancelOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		order, err := orders.Cancel(c.Request.Context(), id)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": order.ID, "status": order.Status})
	}
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/queue"
	"github.com/bruno-romeu/balm-api/internal/service"
)

// HandleAdminListOrders handles GET /v1/admin/orders?status=...
func HandleAdminListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := domain.OrderStatus(c.DefaultQuery("status", string(domain.OrderStatusProcessing)))
		limit, offset := paginationParams(c)

		list, err := orders.ListByStatus(c.Request.Context(), status, limit, offset)
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

// HandleAdminUpdateStatus handles PATCH /v1/admin/orders/:id/status
func HandleAdminUpdateStatus(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		var req service.UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		order, err := orders.Transition(c.Request.Context(), id, req.Status)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": order.ID, "status": order.Status})
	}
}

// HandleAdminGenerateShipping handles POST /v1/admin/orders/:id/generate-shipping.
// It runs label generation synchronously so an operator can retry a stuck
// order and see the result in the response. Only processing orders qualify.
func HandleAdminGenerateShipping(orders *service.OrderService, fulfillment *service.FulfillmentService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		order, err := orders.GetOrder(c.Request.Context(), id)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		if order.Status != domain.OrderStatusProcessing {
			c.JSON(http.StatusConflict, gin.H{
				"error": "order is not in processing status",
			})
			return
		}

		if err := fulfillment.ProcessOrder(c.Request.Context(), queue.FulfillmentJob{OrderID: id}); err != nil {
			logger.Error("Manual label generation failed",
				zap.String("order_id", id.String()), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
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

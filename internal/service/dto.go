package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/bruno-romeu/balm-api/internal/domain"
)

// CartItem is one line of an order creation request
type CartItem struct {
	ProductID     uuid.UUID              `json:"product_id" validate:"required"`
	Quantity      int                    `json:"quantity" validate:"required,gt=0"`
	Customization map[string]interface{} `json:"customization,omitempty"`
}

// CreateOrderRequest creates an order from a cart
type CreateOrderRequest struct {
	CustomerID   uuid.UUID  `json:"customer_id" validate:"required"`
	AddressID    uuid.UUID  `json:"address_id" validate:"required"`
	Items        []CartItem `json:"items" validate:"required,min=1,dive"`
	ShippingCost float64    `json:"shipping_cost" validate:"gte=0"`
	Carrier      string     `json:"carrier,omitempty"`
}

// CreateCheckoutRequest starts a payment for an order
type CreateCheckoutRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Method  string    `json:"method,omitempty"`
}

// CheckoutResponse is the created payment session
type CheckoutResponse struct {
	PaymentID    uuid.UUID `json:"payment_id"`
	PreferenceID string    `json:"preference_id"`
	PaymentURL   string    `json:"payment_url"`
}

// WebhookNotification is the normalized form of a Mercado Pago webhook
// payload. The provider sends two shapes; the handler folds both into this.
type WebhookNotification struct {
	Type      string
	PaymentID string
}

// QuoteShippingRequest quotes carrier services for a cart before checkout
type QuoteShippingRequest struct {
	ToPostalCode string     `json:"to_postal_code" validate:"required,len=8,numeric"`
	Items        []CartItem `json:"items" validate:"required,min=1,dive"`
}

// QuoteOption is one quoted carrier service
type QuoteOption struct {
	Service      string  `json:"service"`
	Price        float64 `json:"price"`
	DeliveryDays int     `json:"delivery_days"`
}

// OrderResponse is the API shape of an order
type OrderResponse struct {
	ID           uuid.UUID          `json:"id"`
	CustomerID   uuid.UUID          `json:"customer_id"`
	Status       domain.OrderStatus `json:"status"`
	Total        float64            `json:"total"`
	ShippingCost float64            `json:"shipping_cost"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// OrderItemResponse is the API shape of an order line
type OrderItemResponse struct {
	ProductID         uuid.UUID              `json:"product_id"`
	ProductName       string                 `json:"product_name,omitempty"`
	Quantity          int                    `json:"quantity"`
	BackorderQuantity int                    `json:"backorder_quantity"`
	Price             float64                `json:"price"`
	Customization     map[string]interface{} `json:"customization,omitempty"`
}

// OrderDetailResponse is the API shape of a fully-joined order
type OrderDetailResponse struct {
	OrderResponse
	Items    []OrderItemResponse `json:"items"`
	Payment  *PaymentResponse    `json:"payment,omitempty"`
	Shipping *ShippingResponse   `json:"shipping,omitempty"`
}

// PaymentResponse is the API shape of a payment
type PaymentResponse struct {
	ID     uuid.UUID            `json:"id"`
	Status domain.PaymentStatus `json:"status"`
	Method string               `json:"method,omitempty"`
	PaidAt *time.Time           `json:"paid_at,omitempty"`
}

// ShippingResponse is the API shape of a shipping record
type ShippingResponse struct {
	Status            domain.ShippingStatus `json:"status"`
	Carrier           string                `json:"carrier,omitempty"`
	TrackingCode      *string               `json:"tracking_code,omitempty"`
	LabelURL          *string               `json:"label_url,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimated_delivery,omitempty"`
}

// UpdateOrderStatusRequest is the admin status transition payload
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required"`
}

func ToOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		Status:       o.Status,
		Total:        o.Total,
		ShippingCost: o.ShippingCost,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func ToOrderDetailResponse(d *domain.OrderDetail) OrderDetailResponse {
	resp := OrderDetailResponse{
		OrderResponse: ToOrderResponse(&d.Order),
		Items:         make([]OrderItemResponse, 0, len(d.Items)),
	}
	for _, item := range d.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:         item.ProductID,
			ProductName:       item.ProductName,
			Quantity:          item.Quantity,
			BackorderQuantity: item.BackorderQuantity,
			Price:             item.Price,
			Customization:     item.Customization,
		})
	}
	if d.Payment != nil {
		resp.Payment = &PaymentResponse{
			ID:     d.Payment.ID,
			Status: d.Payment.Status,
			Method: d.Payment.Method,
			PaidAt: d.Payment.PaidAt,
		}
	}
	if d.Shipping != nil {
		resp.Shipping = &ShippingResponse{
			Status:            d.Shipping.Status,
			Carrier:           d.Shipping.Carrier,
			TrackingCode:      d.Shipping.TrackingCode,
			LabelURL:          d.Shipping.LabelURL,
			EstimatedDelivery: d.Shipping.EstimatedDelivery,
		}
	}
	return resp
}

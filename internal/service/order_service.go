package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/metric"
	"github.com/bruno-romeu/balm-api/internal/repository"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// OrderService owns order lifecycle: creation from a cart with stock
// reservation, status transitions, and cancellation with restock.
type OrderService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repos *repository.Repositories, logger *zap.Logger) *OrderService {
	return &OrderService{
		repos:  repos,
		logger: logger,
	}
}

// CreateFromCart creates a pending order, capturing product prices at
// creation time and reserving stock in the same transaction. Items that
// exceed available stock are accepted with a backorder quantity; they never
// fail the order.
func (s *OrderService) CreateFromCart(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, &errors.ErrValidation{Message: "order must have at least one item"}
	}

	// Validate the customer owns the address
	address, err := s.repos.Customer.GetAddress(ctx, req.AddressID)
	if err != nil {
		return nil, err
	}
	if address.CustomerID != req.CustomerID {
		return nil, &errors.ErrValidation{Message: "address does not belong to customer"}
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.repos.Product.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var total float64
	items := make([]*domain.OrderItem, 0, len(req.Items))
	for _, cartItem := range req.Items {
		product, ok := products[cartItem.ProductID]
		if !ok {
			return nil, &errors.ErrNotFound{Resource: "product", ID: cartItem.ProductID.String()}
		}
		if !product.IsActive {
			return nil, &errors.ErrValidation{Message: "product is not available: " + product.Name}
		}

		// Capture the price now; later catalog price changes must not
		// affect this order
		items = append(items, &domain.OrderItem{
			ProductID:     cartItem.ProductID,
			Quantity:      cartItem.Quantity,
			Price:         product.Price,
			Customization: cartItem.Customization,
		})
		total += product.Price * float64(cartItem.Quantity)
	}

	order := &domain.Order{
		CustomerID:   req.CustomerID,
		AddressID:    req.AddressID,
		Status:       domain.OrderStatusPending,
		Total:        total,
		ShippingCost: req.ShippingCost,
	}

	s.logger.Info("Creating order",
		zap.String("customer_id", req.CustomerID.String()),
		zap.Int("item_count", len(items)),
		zap.Float64("total", total))
	if err := s.repos.Order.Create(ctx, order, items); err != nil {
		s.logger.Error("Failed to create order", zap.Error(err))
		return nil, err
	}

	if req.Carrier != "" {
		shipping := &domain.Shipping{
			OrderID: order.ID,
			Status:  domain.ShippingStatusPending,
			Carrier: req.Carrier,
			Cost:    req.ShippingCost,
		}
		if err := s.repos.Shipping.Create(ctx, shipping); err != nil {
			s.logger.Error("Failed to create shipping record",
				zap.String("order_id", order.ID.String()), zap.Error(err))
			return nil, err
		}
	}

	metric.OrderTransitionsTotal.WithLabelValues(string(domain.OrderStatusPending)).Inc()
	return order, nil
}

// GetOrder returns one order
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repos.Order.GetByID(ctx, id)
}

// GetOrderDetail returns one order with items, payment and shipping joined
func (s *OrderService) GetOrderDetail(ctx context.Context, id uuid.UUID) (*domain.OrderDetail, error) {
	return s.repos.Order.GetDetail(ctx, id)
}

// ListByCustomer returns a customer's orders, newest first
func (s *OrderService) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	return s.repos.Order.ListByCustomerID(ctx, customerID, limit, offset)
}

// ListByStatus returns orders in one status, newest first
func (s *OrderService) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	if !status.IsValid() {
		return nil, &errors.ErrValidation{Message: "invalid order status: " + string(status)}
	}
	return s.repos.Order.ListByStatus(ctx, status, limit, offset)
}

// Transition moves an order to a new status, enforcing the lifecycle graph.
// A transition to canceled restocks the order's items in the same
// transaction as the status flip.
func (s *OrderService) Transition(ctx context.Context, id uuid.UUID, newStatus domain.OrderStatus) (*domain.Order, error) {
	if !newStatus.IsValid() {
		return nil, &errors.ErrValidation{Message: "invalid order status: " + string(newStatus)}
	}

	order, err := s.repos.Order.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == newStatus {
		// No-op transitions are accepted so webhook redeliveries stay safe
		return order, nil
	}
	if !order.Status.CanTransitionTo(newStatus) {
		return nil, &errors.ErrInvalidTransition{From: order.Status, To: newStatus}
	}

	if newStatus == domain.OrderStatusCanceled {
		if err := s.repos.Order.CancelAndRestock(ctx, id); err != nil {
			s.logger.Error("Failed to cancel order",
				zap.String("order_id", id.String()), zap.Error(err))
			return nil, err
		}
	} else {
		if err := s.repos.Order.UpdateStatus(ctx, id, newStatus); err != nil {
			s.logger.Error("Failed to update order status",
				zap.String("order_id", id.String()),
				zap.String("status", string(newStatus)),
				zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", id.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(newStatus)))
	metric.OrderTransitionsTotal.WithLabelValues(string(newStatus)).Inc()

	order.Status = newStatus
	return order, nil
}

// Cancel cancels an order and restocks its items
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.Transition(ctx, id, domain.OrderStatusCanceled)
}

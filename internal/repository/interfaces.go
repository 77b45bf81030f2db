package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/bruno-romeu/balm-api/internal/domain"
)

// OrderRepository defines order data access methods.
// Create and CancelAndRestock are transactional with the inventory ledger:
// stock reservation happens in the same transaction as order creation, and
// restock in the same transaction as the status flip to canceled.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*domain.OrderDetail, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	CancelAndRestock(ctx context.Context, id uuid.UUID) error
	ListByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)
}

// PaymentRepository defines payment data access methods
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, providerPaymentID *string) error
	// MarkApproved sets status=approved and paid_at, paid_at only if still unset
	MarkApproved(ctx context.Context, id uuid.UUID, providerPaymentID *string) error
	SetPayerDocument(ctx context.Context, id uuid.UUID, document string) error
}

// ShippingRepository defines shipping/fulfillment record data access methods
type ShippingRepository interface {
	Create(ctx context.Context, shipping *domain.Shipping) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Shipping, error)
	// MarkProcessing flips status to processing and increments retry_count
	MarkProcessing(ctx context.Context, id uuid.UUID) (retryCount int, err error)
	SaveLabel(ctx context.Context, id uuid.UUID, trackingCode, labelURL, melhorEnvioOrderID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ShippingStatus) error
}

// ProductRepository defines product/stock data access methods
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
}

// CustomerRepository defines customer/address data access methods
type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	GetAddress(ctx context.Context, addressID uuid.UUID) (*domain.Address, error)
}

// Repositories aggregates all repositories
type Repositories struct {
	Order    OrderRepository
	Payment  PaymentRepository
	Shipping ShippingRepository
	Product  ProductRepository
	Customer CustomerRepository
}

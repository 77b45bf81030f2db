package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

func TestOrderService_CreateFromCart_CapturesPriceAtCreation(t *testing.T) {
	customerID := uuid.New()
	addressID := uuid.New()
	productID := uuid.New()

	orderRepo := &fakeOrderRepo{
		CreateFn: func(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error {
			order.ID = uuid.New()
			require.Len(t, items, 1)
			assert.Equal(t, 49.90, items[0].Price)
			return nil
		},
	}
	productRepo := &fakeProductRepo{
		GetByIDsFn: func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
			return map[uuid.UUID]*domain.Product{
				productID: {ID: productID, Name: "Lavender Balm", Price: 49.90, StockQuantity: 10, IsActive: true},
			}, nil
		},
	}
	customerRepo := &fakeCustomerRepo{
		GetAddressFn: func(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
			return &domain.Address{ID: id, CustomerID: customerID}, nil
		},
	}
	shippingRepo := &fakeShippingRepo{}

	svc := NewOrderService(fakeRepos(orderRepo, &fakePaymentRepo{}, shippingRepo, productRepo, customerRepo), zap.NewNop())

	order, err := svc.CreateFromCart(context.Background(), CreateOrderRequest{
		CustomerID:   customerID,
		AddressID:    addressID,
		Items:        []CartItem{{ProductID: productID, Quantity: 3}},
		ShippingCost: 18.20,
		Carrier:      "SEDEX",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.InDelta(t, 149.70, order.Total, 0.001)
	assert.Equal(t, 18.20, order.ShippingCost)

	// A carrier choice at checkout creates the shipping record up front
	require.Len(t, shippingRepo.Created, 1)
	assert.Equal(t, "SEDEX", shippingRepo.Created[0].Carrier)
}

func TestOrderService_CreateFromCart_RejectsEmptyCart(t *testing.T) {
	svc := NewOrderService(fakeRepos(&fakeOrderRepo{}, &fakePaymentRepo{}, &fakeShippingRepo{}, &fakeProductRepo{}, &fakeCustomerRepo{}), zap.NewNop())

	_, err := svc.CreateFromCart(context.Background(), CreateOrderRequest{
		CustomerID: uuid.New(),
		AddressID:  uuid.New(),
	})

	var verr *errors.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestOrderService_CreateFromCart_RejectsForeignAddress(t *testing.T) {
	customerRepo := &fakeCustomerRepo{
		GetAddressFn: func(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
			return &domain.Address{ID: id, CustomerID: uuid.New()}, nil
		},
	}
	svc := NewOrderService(fakeRepos(&fakeOrderRepo{}, &fakePaymentRepo{}, &fakeShippingRepo{}, &fakeProductRepo{}, customerRepo), zap.NewNop())

	_, err := svc.CreateFromCart(context.Background(), CreateOrderRequest{
		CustomerID: uuid.New(),
		AddressID:  uuid.New(),
		Items:      []CartItem{{ProductID: uuid.New(), Quantity: 1}},
	})

	var verr *errors.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestOrderService_Transition_RejectsIllegalJump(t *testing.T) {
	orderID := uuid.New()
	orderRepo := &fakeOrderRepo{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
			return &domain.Order{ID: orderID, Status: domain.OrderStatusPending}, nil
		},
	}
	svc := NewOrderService(fakeRepos(orderRepo, &fakePaymentRepo{}, &fakeShippingRepo{}, &fakeProductRepo{}, &fakeCustomerRepo{}), zap.NewNop())

	_, err := svc.Transition(context.Background(), orderID, domain.OrderStatusShipped)

	var terr *errors.ErrInvalidTransition
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.OrderStatusPending, terr.From)
	assert.Equal(t, domain.OrderStatusShipped, terr.To)
	assert.Empty(t, orderRepo.StatusUpdates)
}

func TestOrderService_Transition_RejectsLeavingTerminal(t *testing.T) {
	orderRepo := &fakeOrderRepo{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusDelivered}, nil
		},
	}
	svc := NewOrderService(fakeRepos(orderRepo, &fakePaymentRepo{}, &fakeShippingRepo{}, &fakeProductRepo{}, &fakeCustomerRepo{}), zap.NewNop())

	_, err := svc.Transition(context.Background(), uuid.New(), domain.OrderStatusCanceled)

	var terr *errors.ErrInvalidTransition
	assert.ErrorAs(t, err, &terr)
}

func TestOrderService_Cancel_RoutesThroughRestock(t *testing.T) {
	orderRepo := &fakeOrderRepo{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusPaid}, nil
		},
	}
	svc := NewOrderService(fakeRepos(orderRepo, &fakePaymentRepo{}, &fakeShippingRepo{}, &fakeProductRepo{}, &fakeCustomerRepo{}), zap.NewNop())

	order, err := svc.Cancel(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, order.Status)
	// Cancellation must go through the restocking path, not a bare update
	assert.Equal(t, 1, orderRepo.Cancels)
	assert.Empty(t, orderRepo.StatusUpdates)
}

func TestOrderService_Transition_SameStatusIsNoOp(t *testing.T) {
	orderRepo := &fakeOrderRepo{
		GetByIDFn: func(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
			return &domain.Order{ID: id, Status: domain.OrderStatusProcessing}, nil
		},
	}
	svc := NewOrderService(fakeRepos(orderRepo, &fakePaymentRepo{}, &fakeShippingRepo{}, &fakeProductRepo{}, &fakeCustomerRepo{}), zap.NewNop())

	order, err := svc.Transition(context.Background(), uuid.New(), domain.OrderStatusProcessing)

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, order.Status)
	assert.Empty(t, orderRepo.StatusUpdates)
	assert.Zero(t, orderRepo.Cancels)
}

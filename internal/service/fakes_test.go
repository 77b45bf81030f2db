package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/melhorenvio"
	"github.com/bruno-romeu/balm-api/internal/mercadopago"
	"github.com/bruno-romeu/balm-api/internal/queue"
	"github.com/bruno-romeu/balm-api/internal/repository"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// Function-field fakes: tests set only the methods they expect; anything
// else panics loudly.

type fakeOrderRepo struct {
	CreateFn           func(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetDetailFn        func(ctx context.Context, id uuid.UUID) (*domain.OrderDetail, error)
	UpdateStatusFn     func(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	CancelAndRestockFn func(ctx context.Context, id uuid.UUID) error

	StatusUpdates []domain.OrderStatus
	Cancels       int
	mu            sync.Mutex
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error {
	return f.CreateFn(ctx, order, items)
}

func (f *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return f.GetByIDFn(ctx, id)
}

func (f *fakeOrderRepo) GetDetail(ctx context.Context, id uuid.UUID) (*domain.OrderDetail, error) {
	return f.GetDetailFn(ctx, id)
}

func (f *fakeOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	panic("GetItems not faked")
}

func (f *fakeOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	f.mu.Lock()
	f.StatusUpdates = append(f.StatusUpdates, status)
	f.mu.Unlock()
	if f.UpdateStatusFn != nil {
		return f.UpdateStatusFn(ctx, id, status)
	}
	return nil
}

func (f *fakeOrderRepo) CancelAndRestock(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	f.Cancels++
	f.mu.Unlock()
	if f.CancelAndRestockFn != nil {
		return f.CancelAndRestockFn(ctx, id)
	}
	return nil
}

func (f *fakeOrderRepo) ListByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	panic("ListByCustomerID not faked")
}

func (f *fakeOrderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	panic("ListByStatus not faked")
}

type fakePaymentRepo struct {
	GetByOrderIDFn func(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	CreateFn       func(ctx context.Context, payment *domain.Payment) error

	Approved        int
	StatusUpdates   []domain.PaymentStatus
	PayerDocuments  []string
	mu              sync.Mutex
}

func (f *fakePaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, payment)
	}
	payment.ID = uuid.New()
	return nil
}

func (f *fakePaymentRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	return f.GetByOrderIDFn(ctx, orderID)
}

func (f *fakePaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, providerPaymentID *string) error {
	f.mu.Lock()
	f.StatusUpdates = append(f.StatusUpdates, status)
	f.mu.Unlock()
	return nil
}

func (f *fakePaymentRepo) MarkApproved(ctx context.Context, id uuid.UUID, providerPaymentID *string) error {
	f.mu.Lock()
	f.Approved++
	f.mu.Unlock()
	return nil
}

func (f *fakePaymentRepo) SetPayerDocument(ctx context.Context, id uuid.UUID, document string) error {
	f.mu.Lock()
	f.PayerDocuments = append(f.PayerDocuments, document)
	f.mu.Unlock()
	return nil
}

type fakeShippingRepo struct {
	GetByOrderIDFn func(ctx context.Context, orderID uuid.UUID) (*domain.Shipping, error)

	Created     []*domain.Shipping
	Processing  int
	SavedLabels []string
	Failures    []string
	mu          sync.Mutex
}

func (f *fakeShippingRepo) Create(ctx context.Context, shipping *domain.Shipping) error {
	shipping.ID = uuid.New()
	f.mu.Lock()
	f.Created = append(f.Created, shipping)
	f.mu.Unlock()
	return nil
}

func (f *fakeShippingRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Shipping, error) {
	if f.GetByOrderIDFn != nil {
		return f.GetByOrderIDFn(ctx, orderID)
	}
	return nil, &errors.ErrNotFound{Resource: "shipping", ID: orderID.String()}
}

func (f *fakeShippingRepo) MarkProcessing(ctx context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	f.Processing++
	n := f.Processing
	f.mu.Unlock()
	return n, nil
}

func (f *fakeShippingRepo) SaveLabel(ctx context.Context, id uuid.UUID, trackingCode, labelURL, melhorEnvioOrderID string) error {
	f.mu.Lock()
	f.SavedLabels = append(f.SavedLabels, labelURL)
	f.mu.Unlock()
	return nil
}

func (f *fakeShippingRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	f.Failures = append(f.Failures, errorMessage)
	f.mu.Unlock()
	return nil
}

func (f *fakeShippingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ShippingStatus) error {
	return nil
}

type fakeProductRepo struct {
	GetByIDsFn func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
}

func (f *fakeProductRepo) Create(ctx context.Context, product *domain.Product) error {
	panic("Create not faked")
}

func (f *fakeProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	panic("GetByID not faked")
}

func (f *fakeProductRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	return f.GetByIDsFn(ctx, ids)
}

type fakeCustomerRepo struct {
	GetAddressFn func(ctx context.Context, addressID uuid.UUID) (*domain.Address, error)
}

func (f *fakeCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	panic("GetByID not faked")
}

func (f *fakeCustomerRepo) GetAddress(ctx context.Context, addressID uuid.UUID) (*domain.Address, error) {
	return f.GetAddressFn(ctx, addressID)
}

func fakeRepos(order *fakeOrderRepo, payment *fakePaymentRepo, shipping *fakeShippingRepo, product *fakeProductRepo, customer *fakeCustomerRepo) *repository.Repositories {
	return &repository.Repositories{
		Order:    order,
		Payment:  payment,
		Shipping: shipping,
		Product:  product,
		Customer: customer,
	}
}

type fakeEnqueuer struct {
	Jobs []queue.FulfillmentJob
	Err  error
	mu   sync.Mutex
}

func (f *fakeEnqueuer) EnqueueFulfillment(ctx context.Context, job queue.FulfillmentJob) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	f.Jobs = append(f.Jobs, job)
	f.mu.Unlock()
	return nil
}

type fakeMercadoPago struct {
	CreatePreferenceFn func(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	GetPaymentFn       func(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

func (f *fakeMercadoPago) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	return f.CreatePreferenceFn(ctx, req)
}

func (f *fakeMercadoPago) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	return f.GetPaymentFn(ctx, paymentID)
}

// fakeCarrier records every call so tests can assert the exact protocol
// sequence the worker ran
type fakeCarrier struct {
	CalculateFn func(ctx context.Context, req melhorenvio.QuoteRequest) ([]melhorenvio.QuoteService, error)
	CartErr     error
	CheckoutErr error
	GenerateErr error
	PrintErr    error

	Calls        []string
	LastPayload  melhorenvio.CartPayload
	mu           sync.Mutex
}

func (f *fakeCarrier) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

func (f *fakeCarrier) Calculate(ctx context.Context, req melhorenvio.QuoteRequest) ([]melhorenvio.QuoteService, error) {
	f.record("calculate")
	if f.CalculateFn != nil {
		return f.CalculateFn(ctx, req)
	}
	return []melhorenvio.QuoteService{
		{ID: "1", Name: "PAC", Price: "22.50", DeliveryTime: 8},
		{ID: "2", Name: "SEDEX", Price: "35.10", DeliveryTime: 3},
	}, nil
}

func (f *fakeCarrier) AddToCart(ctx context.Context, payload melhorenvio.CartPayload) (*melhorenvio.CartEntry, error) {
	f.record("cart")
	f.mu.Lock()
	f.LastPayload = payload
	f.mu.Unlock()
	if f.CartErr != nil {
		return nil, f.CartErr
	}
	return &melhorenvio.CartEntry{ID: "me-order-1", Tracking: "BR123456789"}, nil
}

func (f *fakeCarrier) Checkout(ctx context.Context, orderIDs []string) error {
	f.record("checkout")
	return f.CheckoutErr
}

func (f *fakeCarrier) GenerateLabels(ctx context.Context, orderIDs []string) error {
	f.record("generate")
	return f.GenerateErr
}

func (f *fakeCarrier) PrintLabels(ctx context.Context, orderIDs []string) (string, error) {
	f.record("print")
	if f.PrintErr != nil {
		return "", f.PrintErr
	}
	return "https://labels.example/label.pdf", nil
}

type fakeMailer struct {
	Sent chan string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{Sent: make(chan string, 4)}
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	f.Sent <- to
	return nil
}

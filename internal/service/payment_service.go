package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/mercadopago"
	"github.com/bruno-romeu/balm-api/internal/metric"
	"github.com/bruno-romeu/balm-api/internal/queue"
	"github.com/bruno-romeu/balm-api/internal/repository"
	"github.com/bruno-romeu/balm-api/pkg/document"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// PaymentService owns checkout creation and webhook reconciliation. The
// webhook path is the single place where a payment approval promotes an
// order to processing and enqueues fulfillment.
type PaymentService struct {
	repos    *repository.Repositories
	provider mercadopago.API
	enqueuer queue.Enqueuer
	cfg      config.MercadoPagoConfig
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(repos *repository.Repositories, provider mercadopago.API, enqueuer queue.Enqueuer, cfg config.MercadoPagoConfig, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repos:    repos,
		provider: provider,
		enqueuer: enqueuer,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateCheckout creates a provider checkout preference for a pending order
// and records the local payment row. One payment per order: a second call
// for the same order is rejected.
func (s *PaymentService) CreateCheckout(ctx context.Context, req CreateCheckoutRequest) (*CheckoutResponse, error) {
	detail, err := s.repos.Order.GetDetail(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if detail.Order.Status != domain.OrderStatusPending {
		return nil, &errors.ErrConflict{Message: "order is not awaiting payment"}
	}
	if detail.Payment != nil {
		return nil, &errors.ErrConflict{Message: "order already has a payment"}
	}

	prefItems := make([]mercadopago.PreferenceItem, 0, len(detail.Items)+1)
	for _, item := range detail.Items {
		prefItems = append(prefItems, mercadopago.PreferenceItem{
			Title:      item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			CurrencyID: "BRL",
		})
	}
	if detail.Order.ShippingCost > 0 {
		prefItems = append(prefItems, mercadopago.PreferenceItem{
			Title:      "Frete",
			Quantity:   1,
			UnitPrice:  detail.Order.ShippingCost,
			CurrencyID: "BRL",
		})
	}

	pref, err := s.provider.CreatePreference(ctx, mercadopago.PreferenceRequest{
		Items: prefItems,
		Payer: mercadopago.PreferencePayer{
			Name:  detail.Customer.FirstName + " " + detail.Customer.LastName,
			Email: detail.Customer.Email,
		},
		// The provider echoes this back on payment payloads; the webhook
		// resolves the order through it
		ExternalReference: detail.Order.ID.String(),
		NotificationURL:   s.cfg.NotificationURL,
	})
	if err != nil {
		s.logger.Error("Failed to create checkout preference",
			zap.String("order_id", req.OrderID.String()), zap.Error(err))
		return nil, err
	}

	payment := &domain.Payment{
		OrderID:      detail.Order.ID,
		Status:       domain.PaymentStatusPending,
		Method:       req.Method,
		PreferenceID: &pref.ID,
	}
	if err := s.repos.Payment.Create(ctx, payment); err != nil {
		s.logger.Error("Failed to create payment record",
			zap.String("order_id", req.OrderID.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Checkout created",
		zap.String("order_id", detail.Order.ID.String()),
		zap.String("preference_id", pref.ID))

	return &CheckoutResponse{
		PaymentID:    payment.ID,
		PreferenceID: pref.ID,
		PaymentURL:   pref.PaymentURL,
	}, nil
}

// ProcessNotification reconciles one webhook notification against the
// provider. Fetching the payment from the provider, never trusting the
// webhook body, is what makes redeliveries and spoofed bodies harmless.
// Only the first transition into approved promotes the order and enqueues
// fulfillment; every later approved notification is a no-op.
func (s *PaymentService) ProcessNotification(ctx context.Context, notification WebhookNotification) error {
	if notification.Type != "payment" {
		s.logger.Debug("Ignoring non-payment notification", zap.String("type", notification.Type))
		metric.WebhookNotificationsTotal.WithLabelValues("ignored").Inc()
		return nil
	}
	if notification.PaymentID == "" {
		metric.WebhookNotificationsTotal.WithLabelValues("invalid").Inc()
		return &errors.ErrValidation{Message: "notification has no payment id"}
	}

	providerPayment, err := s.provider.GetPayment(ctx, notification.PaymentID)
	if err != nil {
		metric.WebhookNotificationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to fetch payment from provider: %w", err)
	}

	orderID, err := uuid.Parse(providerPayment.ExternalReference)
	if err != nil {
		metric.WebhookNotificationsTotal.WithLabelValues("invalid").Inc()
		return &errors.ErrValidation{Message: "payment has no usable external reference"}
	}

	payment, err := s.repos.Payment.GetByOrderID(ctx, orderID)
	if err != nil {
		metric.WebhookNotificationsTotal.WithLabelValues("error").Inc()
		return err
	}

	newStatus := domain.PaymentStatusFromProvider(providerPayment.Status)
	providerPaymentID := providerPayment.ID.String()

	firstApproval := payment.Status != domain.PaymentStatusApproved && newStatus == domain.PaymentStatusApproved
	if !firstApproval {
		if err := s.repos.Payment.UpdateStatus(ctx, payment.ID, newStatus, &providerPaymentID); err != nil {
			metric.WebhookNotificationsTotal.WithLabelValues("error").Inc()
			return err
		}
		s.logger.Info("Payment status updated",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(newStatus)))
		metric.WebhookNotificationsTotal.WithLabelValues("processed").Inc()
		return nil
	}

	// First approval: record paid_at, promote the order, enqueue fulfillment
	if err := s.repos.Payment.MarkApproved(ctx, payment.ID, &providerPaymentID); err != nil {
		metric.WebhookNotificationsTotal.WithLabelValues("error").Inc()
		return err
	}

	// The payer tax id feeds carrier labels later; losing it is survivable
	if doc := document.CleanCPF(providerPayment.PayerDocument()); doc != "" {
		if err := s.repos.Payment.SetPayerDocument(ctx, payment.ID, doc); err != nil {
			s.logger.Warn("Failed to store payer document",
				zap.String("payment_id", payment.ID.String()), zap.Error(err))
		}
	}

	if err := s.promoteOrder(ctx, orderID); err != nil {
		metric.WebhookNotificationsTotal.WithLabelValues("error").Inc()
		return err
	}

	job := queue.FulfillmentJob{
		OrderID:   orderID,
		PaymentID: providerPaymentID,
	}
	if err := s.enqueuer.EnqueueFulfillment(ctx, job); err != nil {
		// The approval is already durable; the shipping can be kicked off
		// again from the admin surface
		s.logger.Error("Failed to enqueue fulfillment",
			zap.String("order_id", orderID.String()), zap.Error(err))
		metric.WebhookNotificationsTotal.WithLabelValues("error").Inc()
		return err
	}

	s.logger.Info("Payment approved, fulfillment enqueued",
		zap.String("order_id", orderID.String()),
		zap.String("provider_payment_id", providerPaymentID))
	metric.WebhookNotificationsTotal.WithLabelValues("processed").Inc()
	return nil
}

// promoteOrder moves the paying order toward processing. Pending orders go
// through paid first so the lifecycle graph holds.
func (s *PaymentService) promoteOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	switch order.Status {
	case domain.OrderStatusPending:
		if err := s.repos.Order.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
			return err
		}
		metric.OrderTransitionsTotal.WithLabelValues(string(domain.OrderStatusPaid)).Inc()
		fallthrough
	case domain.OrderStatusPaid:
		if err := s.repos.Order.UpdateStatus(ctx, orderID, domain.OrderStatusProcessing); err != nil {
			return err
		}
		metric.OrderTransitionsTotal.WithLabelValues(string(domain.OrderStatusProcessing)).Inc()
		return nil
	default:
		// Already processing or beyond; nothing to promote
		s.logger.Debug("Order already past payment",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(order.Status)))
		return nil
	}
}

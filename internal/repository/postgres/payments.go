package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

type paymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB, logger *zap.Logger) *paymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, status, method, preference_id, provider_payment_id, payer_document, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = now
	}
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.Status,
		payment.Method,
		payment.PreferenceID,
		payment.ProviderPaymentID,
		payment.PayerDocument,
		payment.PaidAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", zap.Error(err))
		return err
	}

	return nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, order_id, status, method, preference_id, provider_payment_id, payer_document, paid_at, created_at, updated_at
		FROM payments
		WHERE order_id = $1
	`

	var payment domain.Payment
	var preferenceID sql.NullString
	var providerPaymentID sql.NullString
	var payerDocument sql.NullString
	var paidAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Status,
		&payment.Method,
		&preferenceID,
		&providerPaymentID,
		&payerDocument,
		&paidAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "payment", ID: orderID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get payment by order ID", zap.Error(err))
		return nil, err
	}

	if preferenceID.Valid {
		payment.PreferenceID = &preferenceID.String
	}
	if providerPaymentID.Valid {
		payment.ProviderPaymentID = &providerPaymentID.String
	}
	if payerDocument.Valid {
		payment.PayerDocument = &payerDocument.String
	}
	if paidAt.Valid {
		payment.PaidAt = &paidAt.Time
	}

	return &payment, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus, providerPaymentID *string) error {
	query := `
		UPDATE payments
		SET status = $2, provider_payment_id = COALESCE($3, provider_payment_id), updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, providerPaymentID, time.Now())
	if err != nil {
		r.logger.Error("Failed to update payment status", zap.Error(err))
		return err
	}

	return nil
}

// MarkApproved sets status=approved and stamps paid_at. COALESCE keeps the
// original timestamp on webhook re-delivery: paid_at is set at most once.
func (r *paymentRepository) MarkApproved(ctx context.Context, id uuid.UUID, providerPaymentID *string) error {
	query := `
		UPDATE payments
		SET status = $2, provider_payment_id = COALESCE($3, provider_payment_id),
			paid_at = COALESCE(paid_at, $4), updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, domain.PaymentStatusApproved, providerPaymentID, time.Now())
	if err != nil {
		r.logger.Error("Failed to mark payment approved", zap.Error(err))
		return err
	}

	return nil
}

func (r *paymentRepository) SetPayerDocument(ctx context.Context, id uuid.UUID, document string) error {
	query := `
		UPDATE payments
		SET payer_document = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, document, time.Now())
	if err != nil {
		r.logger.Error("Failed to set payer document", zap.Error(err))
		return err
	}

	return nil
}

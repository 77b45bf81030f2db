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

type shippingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewShippingRepository creates a new shipping repository
func NewShippingRepository(db *sql.DB, logger *zap.Logger) *shippingRepository {
	return &shippingRepository{
		db:     db,
		logger: logger,
	}
}

func (r *shippingRepository) Create(ctx context.Context, shipping *domain.Shipping) error {
	query := `
		INSERT INTO shippings (id, order_id, status, carrier, tracking_code, label_url, melhor_envio_order_id,
			retry_count, error_message, label_generated_at, estimated_delivery, cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	if shipping.ID == uuid.Nil {
		shipping.ID = uuid.New()
	}
	if shipping.UpdatedAt.IsZero() {
		shipping.UpdatedAt = time.Now()
	}
	if shipping.Status == "" {
		shipping.Status = domain.ShippingStatusPending
	}

	_, err := r.db.ExecContext(ctx, query,
		shipping.ID,
		shipping.OrderID,
		shipping.Status,
		shipping.Carrier,
		shipping.TrackingCode,
		shipping.LabelURL,
		shipping.MelhorEnvioOrderID,
		shipping.RetryCount,
		shipping.ErrorMessage,
		shipping.LabelGeneratedAt,
		shipping.EstimatedDelivery,
		shipping.Cost,
		shipping.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create shipping record", zap.Error(err))
		return err
	}

	return nil
}

func (r *shippingRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Shipping, error) {
	query := `
		SELECT id, order_id, status, carrier, tracking_code, label_url, melhor_envio_order_id,
			retry_count, error_message, label_generated_at, estimated_delivery, cost, updated_at
		FROM shippings
		WHERE order_id = $1
	`

	var shipping domain.Shipping
	var trackingCode sql.NullString
	var labelURL sql.NullString
	var melhorEnvioOrderID sql.NullString
	var errorMessage sql.NullString
	var labelGeneratedAt sql.NullTime
	var estimatedDelivery sql.NullTime

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&shipping.ID,
		&shipping.OrderID,
		&shipping.Status,
		&shipping.Carrier,
		&trackingCode,
		&labelURL,
		&melhorEnvioOrderID,
		&shipping.RetryCount,
		&errorMessage,
		&labelGeneratedAt,
		&estimatedDelivery,
		&shipping.Cost,
		&shipping.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "shipping", ID: orderID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get shipping by order ID", zap.Error(err))
		return nil, err
	}

	if trackingCode.Valid {
		shipping.TrackingCode = &trackingCode.String
	}
	if labelURL.Valid {
		shipping.LabelURL = &labelURL.String
	}
	if melhorEnvioOrderID.Valid {
		shipping.MelhorEnvioOrderID = &melhorEnvioOrderID.String
	}
	if errorMessage.Valid {
		shipping.ErrorMessage = &errorMessage.String
	}
	if labelGeneratedAt.Valid {
		shipping.LabelGeneratedAt = &labelGeneratedAt.Time
	}
	if estimatedDelivery.Valid {
		shipping.EstimatedDelivery = &estimatedDelivery.Time
	}

	return &shipping, nil
}

// MarkProcessing flips the record to processing and increments retry_count,
// the visible in-flight marker for operators and retries.
func (r *shippingRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE shippings
		SET status = $2, retry_count = retry_count + 1, updated_at = $3
		WHERE id = $1
		RETURNING retry_count
	`

	var retryCount int
	err := r.db.QueryRowContext(ctx, query, id, domain.ShippingStatusProcessing, time.Now()).Scan(&retryCount)
	if err != nil {
		r.logger.Error("Failed to mark shipping processing", zap.Error(err))
		return 0, err
	}

	return retryCount, nil
}

func (r *shippingRepository) SaveLabel(ctx context.Context, id uuid.UUID, trackingCode, labelURL, melhorEnvioOrderID string) error {
	query := `
		UPDATE shippings
		SET status = $2, tracking_code = $3, label_url = $4, melhor_envio_order_id = $5,
			label_generated_at = $6, error_message = NULL, updated_at = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, domain.ShippingStatusShipped, trackingCode, labelURL, melhorEnvioOrderID, time.Now())
	if err != nil {
		r.logger.Error("Failed to save shipping label", zap.Error(err))
		return err
	}

	return nil
}

func (r *shippingRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE shippings
		SET status = $2, error_message = $3, updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, domain.ShippingStatusFailed, errorMessage, time.Now())
	if err != nil {
		r.logger.Error("Failed to mark shipping failed", zap.Error(err))
		return err
	}

	return nil
}

func (r *shippingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ShippingStatus) error {
	query := `
		UPDATE shippings
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		r.logger.Error("Failed to update shipping status", zap.Error(err))
		return err
	}

	return nil
}

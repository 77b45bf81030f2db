package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// InventoryLedger performs the row-locked stock mutations. Both operations
// take the caller's transaction: reservation runs in the same transaction
// as order creation, restock in the same transaction as cancellation, so a
// crash never leaves a partial reservation or a released-then-unreleased
// order behind.
type InventoryLedger struct {
	logger *zap.Logger
}

// NewInventoryLedger creates a new inventory ledger
func NewInventoryLedger(logger *zap.Logger) *InventoryLedger {
	return &InventoryLedger{logger: logger}
}

// ReserveOrBackorder locks each product row, decrements available stock by
// min(quantity, stock_quantity) and records the remainder as the item's
// backorder quantity. Items are mutated in place.
func (l *InventoryLedger) ReserveOrBackorder(ctx context.Context, tx *sql.Tx, items []*domain.OrderItem) error {
	for _, item := range items {
		stock, err := l.lockStock(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}

		reserved := item.Quantity
		if stock < reserved {
			reserved = stock
		}
		item.BackorderQuantity = item.Quantity - reserved

		if err := l.setStock(ctx, tx, item.ProductID, stock-reserved); err != nil {
			return err
		}
	}
	return nil
}

// Restock locks each product row and adds back the portion that was actually
// taken from stock. The backordered portion was never subtracted, so it must
// not be re-added. No-op for an order with no items.
func (l *InventoryLedger) Restock(ctx context.Context, tx *sql.Tx, items []*domain.OrderItem) error {
	for _, item := range items {
		reserved := item.Quantity - item.BackorderQuantity
		if reserved <= 0 {
			continue
		}

		stock, err := l.lockStock(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}
		if err := l.setStock(ctx, tx, item.ProductID, stock+reserved); err != nil {
			return err
		}
	}
	return nil
}

func (l *InventoryLedger) lockStock(ctx context.Context, tx *sql.Tx, productID uuid.UUID) (int, error) {
	var stock int
	err := tx.QueryRowContext(ctx,
		`SELECT stock_quantity FROM products WHERE id = $1 FOR UPDATE`,
		productID,
	).Scan(&stock)
	if err == sql.ErrNoRows {
		return 0, &errors.ErrNotFound{Resource: "product", ID: productID.String()}
	}
	if err != nil {
		l.logger.Error("Failed to lock product stock row", zap.String("product_id", productID.String()), zap.Error(err))
		return 0, err
	}
	return stock, nil
}

func (l *InventoryLedger) setStock(ctx context.Context, tx *sql.Tx, productID uuid.UUID, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE products SET stock_quantity = $2, stock = $3, updated_at = NOW() WHERE id = $1`,
		productID, quantity, quantity > 0,
	)
	if err != nil {
		l.logger.Error("Failed to update product stock", zap.String("product_id", productID.String()), zap.Error(err))
	}
	return err
}

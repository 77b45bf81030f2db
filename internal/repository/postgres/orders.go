package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	ledger *InventoryLedger
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, ledger *InventoryLedger, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		ledger: ledger,
		logger: logger,
	}
}

// Create inserts the order and its items and reserves stock, all in one
// transaction. Item backorder quantities are filled in by the ledger.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order, items []*domain.OrderItem) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, address_id, status, total, shipping_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		order.ID,
		order.CustomerID,
		order.AddressID,
		order.Status,
		order.Total,
		order.ShippingCost,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", zap.Error(err))
		return err
	}

	for _, item := range items {
		item.OrderID = order.ID
	}
	if err := r.ledger.ReserveOrBackorder(ctx, tx, items); err != nil {
		return err
	}

	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}

		var customizationJSON []byte
		if item.Customization != nil {
			customizationJSON, err = json.Marshal(item.Customization)
			if err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, backorder_quantity, price, customization, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.BackorderQuantity,
			item.Price,
			customizationJSON,
			item.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create order item", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order creation: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, customer_id, address_id, status, total, shipping_cost, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.AddressID,
		&order.Status,
		&order.Total,
		&order.ShippingCost,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	return &order, nil
}

func (r *orderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, backorder_quantity, price, customization, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetDetail loads the order with its items (joined with product size data),
// customer, address, and the payment/shipping records when present. This is
// the single load the fulfillment worker runs.
func (r *orderRepository) GetDetail(ctx context.Context, id uuid.UUID) (*domain.OrderDetail, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.OrderDetail{Order: *order}

	itemQuery := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.backorder_quantity, oi.price, oi.customization, oi.created_at,
			p.name, p.size_weight, p.size_height, p.size_width, p.size_length
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		r.logger.Error("Failed to get order item details", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItemDetail
		var customizationJSON []byte
		var weight, height, width, length sql.NullFloat64

		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.BackorderQuantity,
			&item.Price,
			&customizationJSON,
			&item.CreatedAt,
			&item.ProductName,
			&weight,
			&height,
			&width,
			&length,
		)
		if err != nil {
			return nil, err
		}

		if len(customizationJSON) > 0 {
			if err := json.Unmarshal(customizationJSON, &item.Customization); err != nil {
				return nil, err
			}
		}
		if weight.Valid || height.Valid || width.Valid || length.Valid {
			item.ProductSize = &domain.ProductSize{
				Weight: weight.Float64,
				Height: height.Float64,
				Width:  width.Float64,
				Length: length.Float64,
			}
		}
		detail.Items = append(detail.Items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	customer, err := NewCustomerRepository(r.db, r.logger).GetByID(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	detail.Customer = *customer

	address, err := NewCustomerRepository(r.db, r.logger).GetAddress(ctx, order.AddressID)
	if err != nil {
		return nil, err
	}
	detail.Address = *address

	payment, err := NewPaymentRepository(r.db, r.logger).GetByOrderID(ctx, order.ID)
	if err == nil {
		detail.Payment = payment
	} else if _, ok := err.(*errors.ErrNotFound); !ok {
		return nil, err
	}

	shipping, err := NewShippingRepository(r.db, r.logger).GetByOrderID(ctx, order.ID)
	if err == nil {
		detail.Shipping = shipping
	} else if _, ok := err.(*errors.ErrNotFound); !ok {
		return nil, err
	}

	return detail, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return err
	}

	return nil
}

// CancelAndRestock releases the reserved stock for every item and flips the
// order to canceled, in one transaction. The order row is locked and its
// status re-checked inside the transaction, so two concurrent cancels can
// never both restock: the second one sees canceled and leaves stock alone.
func (r *orderRepository) CancelAndRestock(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to lock order for cancellation", zap.Error(err))
		return err
	}

	if status == domain.OrderStatusCanceled {
		// Already canceled by a concurrent request; its transaction restocked
		return nil
	}
	if !status.CanTransitionTo(domain.OrderStatusCanceled) {
		return &errors.ErrInvalidTransition{From: status, To: domain.OrderStatusCanceled}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, backorder_quantity, price, customization, created_at
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		r.logger.Error("Failed to load items for restock", zap.Error(err))
		return err
	}

	var items []*domain.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			rows.Close()
			return err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if err := r.ledger.Restock(ctx, tx, items); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, domain.OrderStatusCanceled, time.Now(),
	)
	if err != nil {
		r.logger.Error("Failed to cancel order", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return nil
}

func (r *orderRepository) ListByCustomerID(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_id, address_id, status, total, shipping_cost, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.listOrders(ctx, query, customerID, limit, offset)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT id, customer_id, address_id, status, total, shipping_cost, created_at, updated_at
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.listOrders(ctx, query, status, limit, offset)
}

func (r *orderRepository) listOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.AddressID,
			&order.Status,
			&order.Total,
			&order.ShippingCost,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, &order)
	}

	return orders, rows.Err()
}

func scanOrderItem(rows *sql.Rows) (*domain.OrderItem, error) {
	var item domain.OrderItem
	var customizationJSON []byte

	err := rows.Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.Quantity,
		&item.BackorderQuantity,
		&item.Price,
		&customizationJSON,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(customizationJSON) > 0 {
		if err := json.Unmarshal(customizationJSON, &item.Customization); err != nil {
			return nil, err
		}
	}

	return &item, nil
}

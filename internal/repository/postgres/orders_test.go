package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

func TestOrderRepository_CancelAndRestock_RestocksAndFlips(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()
	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("paid"))
	mock.ExpectQuery(`SELECT id, order_id, product_id, quantity, backorder_quantity, price, customization, created_at`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "product_id", "quantity", "backorder_quantity", "price", "customization", "created_at",
		}).AddRow(uuid.NewString(), orderID.String(), productID.String(), 3, 0, 49.90, nil, time.Now()))
	mock.ExpectQuery(`SELECT stock_quantity FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(7))
	mock.ExpectExec(`UPDATE products SET stock_quantity = \$2, stock = \$3`).
		WithArgs(productID, 10, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders SET status = \$2`).
		WithArgs(orderID, domain.OrderStatusCanceled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewOrderRepository(db, NewInventoryLedger(zap.NewNop()), zap.NewNop())
	err = repo.CancelAndRestock(context.Background(), orderID)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CancelAndRestock_SecondCancelReleasesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()

	// The locked row already reads canceled: a concurrent cancel won the
	// race and restocked in its own transaction. No product update may
	// follow here.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("canceled"))
	mock.ExpectRollback()

	repo := NewOrderRepository(db, NewInventoryLedger(zap.NewNop()), zap.NewNop())
	err = repo.CancelAndRestock(context.Background(), orderID)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CancelAndRestock_ShippedOrderIsRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("shipped"))
	mock.ExpectRollback()

	repo := NewOrderRepository(db, NewInventoryLedger(zap.NewNop()), zap.NewNop())
	err = repo.CancelAndRestock(context.Background(), orderID)

	var terr *errors.ErrInvalidTransition
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, domain.OrderStatusShipped, terr.From)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CancelAndRestock_UnknownOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1 FOR UPDATE`).
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	repo := NewOrderRepository(db, NewInventoryLedger(zap.NewNop()), zap.NewNop())
	err = repo.CancelAndRestock(context.Background(), orderID)

	var nerr *errors.ErrNotFound
	assert.ErrorAs(t, err, &nerr)
}

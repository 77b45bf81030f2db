package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

func TestInventoryLedger_ReserveOrBackorder_PartialStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	productID := uuid.New()

	mock.ExpectBegin()
	// 5 in stock, 8 requested: lock the row, take all 5, backorder 3
	mock.ExpectQuery(`SELECT stock_quantity FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(5))
	mock.ExpectExec(`UPDATE products SET stock_quantity = \$2, stock = \$3, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(productID, 0, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	item := &domain.OrderItem{ProductID: productID, Quantity: 8}
	ledger := NewInventoryLedger(zap.NewNop())
	err = ledger.ReserveOrBackorder(context.Background(), tx, []*domain.OrderItem{item})

	require.NoError(t, err)
	assert.Equal(t, 3, item.BackorderQuantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryLedger_ReserveOrBackorder_FullStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stock_quantity FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(10))
	mock.ExpectExec(`UPDATE products SET stock_quantity = \$2, stock = \$3`).
		WithArgs(productID, 7, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	item := &domain.OrderItem{ProductID: productID, Quantity: 3}
	err = NewInventoryLedger(zap.NewNop()).ReserveOrBackorder(context.Background(), tx, []*domain.OrderItem{item})

	require.NoError(t, err)
	assert.Zero(t, item.BackorderQuantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryLedger_ReserveOrBackorder_UnknownProduct(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT stock_quantity FROM products`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}))

	tx, err := db.Begin()
	require.NoError(t, err)

	item := &domain.OrderItem{ProductID: productID, Quantity: 1}
	err = NewInventoryLedger(zap.NewNop()).ReserveOrBackorder(context.Background(), tx, []*domain.OrderItem{item})

	var nerr *errors.ErrNotFound
	assert.ErrorAs(t, err, &nerr)
}

func TestInventoryLedger_Restock_SkipsBackorderedPortion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	productID := uuid.New()

	mock.ExpectBegin()
	// 8 ordered, 3 backordered: only the 5 actually reserved come back
	mock.ExpectQuery(`SELECT stock_quantity FROM products WHERE id = \$1 FOR UPDATE`).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"stock_quantity"}).AddRow(0))
	mock.ExpectExec(`UPDATE products SET stock_quantity = \$2, stock = \$3`).
		WithArgs(productID, 5, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.Begin()
	require.NoError(t, err)

	item := &domain.OrderItem{ProductID: productID, Quantity: 8, BackorderQuantity: 3}
	err = NewInventoryLedger(zap.NewNop()).Restock(context.Background(), tx, []*domain.OrderItem{item})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryLedger_Restock_FullyBackorderedIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()

	tx, err := db.Begin()
	require.NoError(t, err)

	item := &domain.OrderItem{ProductID: uuid.New(), Quantity: 4, BackorderQuantity: 4}
	err = NewInventoryLedger(zap.NewNop()).Restock(context.Background(), tx, []*domain.OrderItem{item})

	require.NoError(t, err)
	// No queries at all: the stock was never decremented for this item
	require.NoError(t, mock.ExpectationsWereMet())
}

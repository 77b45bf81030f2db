package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/repository"
)

// NewRepositories creates a new set of repositories
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	ledger := NewInventoryLedger(logger)
	return &repository.Repositories{
		Order:    NewOrderRepository(db, ledger, logger),
		Payment:  NewPaymentRepository(db, logger),
		Shipping: NewShippingRepository(db, logger),
		Product:  NewProductRepository(db, logger),
		Customer: NewCustomerRepository(db, logger),
	}
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

type customerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB, logger *zap.Logger) *customerRepository {
	return &customerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone, cpf, created_at
		FROM customers
		WHERE id = $1
	`

	var customer domain.Customer
	var cpf sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Email,
		&customer.Phone,
		&cpf,
		&customer.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "customer", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get customer by ID", zap.Error(err))
		return nil, err
	}

	if cpf.Valid {
		customer.CPF = &cpf.String
	}

	return &customer, nil
}

func (r *customerRepository) GetAddress(ctx context.Context, addressID uuid.UUID) (*domain.Address, error) {
	query := `
		SELECT id, customer_id, street, number, complement, neighborhood, city, state, zipcode, created_at
		FROM addresses
		WHERE id = $1
	`

	var address domain.Address
	var complement sql.NullString

	err := r.db.QueryRowContext(ctx, query, addressID).Scan(
		&address.ID,
		&address.CustomerID,
		&address.Street,
		&address.Number,
		&complement,
		&address.Neighborhood,
		&address.City,
		&address.State,
		&address.Zipcode,
		&address.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "address", ID: addressID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get address by ID", zap.Error(err))
		return nil, err
	}

	if complement.Valid {
		address.Complement = &complement.String
	}

	return &address, nil
}

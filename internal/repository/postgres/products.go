package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, stock_quantity, stock, size_weight, size_height, size_width, size_length, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	now := time.Now()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}
	product.Stock = product.StockQuantity > 0

	var weight, height, width, length interface{}
	if product.Size != nil {
		weight = product.Size.Weight
		height = product.Size.Height
		width = product.Size.Width
		length = product.Size.Length
	}

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Price,
		product.StockQuantity,
		product.Stock,
		weight,
		height,
		width,
		length,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create product", zap.Error(err))
		return err
	}

	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, price, stock_quantity, stock, size_weight, size_height, size_width, size_length, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	product, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get product by ID", zap.Error(err))
		return nil, err
	}

	return product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*domain.Product{}, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		SELECT id, name, price, stock_quantity, stock, size_weight, size_height, size_width, size_length, is_active, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(idStrings))
	if err != nil {
		r.logger.Error("Failed to get products by IDs", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	products := make(map[uuid.UUID]*domain.Product, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = product
	}

	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	var weight, height, width, length sql.NullFloat64

	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.StockQuantity,
		&product.Stock,
		&weight,
		&height,
		&width,
		&length,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if weight.Valid || height.Valid || width.Valid || length.Valid {
		product.Size = &domain.ProductSize{
			Weight: weight.Float64,
			Height: height.Float64,
			Width:  width.Float64,
			Length: length.Float64,
		}
	}

	return &product, nil
}

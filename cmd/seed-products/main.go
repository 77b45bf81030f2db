// Seeds the catalog with fake products for local development.
//
// Usage: go run ./cmd/seed-products -count 30
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/brianvoe/gofakeit"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/repository/postgres"
)

func main() {
	count := flag.Int("count", 20, "number of products to create")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	ctx := context.Background()

	gofakeit.Seed(0)
	for i := 0; i < *count; i++ {
		product := &domain.Product{
			Name:          fmt.Sprintf("%s %s Balm", gofakeit.HipsterWord(), gofakeit.Color()),
			Price:         gofakeit.Price(15, 120),
			StockQuantity: rand.Intn(50),
			IsActive:      true,
			Size: &domain.ProductSize{
				Weight: 0.1 + rand.Float64()*0.4,
				Height: 3 + rand.Float64()*5,
				Width:  3 + rand.Float64()*5,
				Length: 5 + rand.Float64()*10,
			},
		}
		product.Stock = product.StockQuantity > 0

		if err := repos.Product.Create(ctx, product); err != nil {
			logger.Fatal("Failed to create product", zap.Error(err))
		}
		logger.Info("Created product",
			zap.String("id", product.ID.String()),
			zap.String("name", product.Name),
			zap.Int("stock", product.StockQuantity))
	}

	logger.Info("Seeding complete", zap.Int("count", *count))
}

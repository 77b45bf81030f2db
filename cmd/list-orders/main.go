// Lists recent orders, optionally filtered by status.
//
// Usage: go run ./cmd/list-orders [status]
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	ctx := context.Background()

	statuses := []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusPaid, domain.OrderStatusProcessing,
		domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCanceled,
	}
	if len(os.Args) > 1 {
		status := domain.OrderStatus(os.Args[1])
		if !status.IsValid() {
			fmt.Fprintf(os.Stderr, "Unknown status %q\n", os.Args[1])
			os.Exit(1)
		}
		statuses = []domain.OrderStatus{status}
	}

	total := 0
	for _, status := range statuses {
		orders, err := repos.Order.ListByStatus(ctx, status, 100, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list %s orders: %v\n", status, err)
			os.Exit(1)
		}
		for _, o := range orders {
			fmt.Printf("%s  %-10s  total=%8.2f  shipping=%6.2f  created=%s\n",
				o.ID, o.Status, o.Total, o.ShippingCost, o.CreatedAt.Format("2006-01-02 15:04"))
			total++
		}
	}

	fmt.Printf("\n%d order(s)\n", total)
}

// Prints the full detail of one order: items, payment, shipping.
//
// Usage: go run ./cmd/find-order <order-uuid>
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/repository/postgres"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/find-order <order-uuid>")
		os.Exit(1)
	}

	orderID, err := uuid.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid order id: %v\n", err)
		os.Exit(1)
	}

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

	detail, err := repos.Order.GetDetail(context.Background(), orderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load order: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Order %s\n", detail.Order.ID)
	fmt.Printf("  status:   %s\n", detail.Order.Status)
	fmt.Printf("  customer: %s %s <%s>\n", detail.Customer.FirstName, detail.Customer.LastName, detail.Customer.Email)
	fmt.Printf("  total:    %.2f (+ %.2f shipping)\n", detail.Order.Total, detail.Order.ShippingCost)
	fmt.Printf("  address:  %s %s, %s/%s %s\n",
		detail.Address.Street, detail.Address.Number, detail.Address.City, detail.Address.State, detail.Address.Zipcode)

	fmt.Println("  items:")
	for _, item := range detail.Items {
		backorder := ""
		if item.BackorderQuantity > 0 {
			backorder = fmt.Sprintf(" (backorder %d)", item.BackorderQuantity)
		}
		fmt.Printf("    %dx %s @ %.2f%s\n", item.Quantity, item.ProductName, item.Price, backorder)
	}

	if p := detail.Payment; p != nil {
		paidAt := "-"
		if p.PaidAt != nil {
			paidAt = p.PaidAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  payment:  %s method=%s paid_at=%s\n", p.Status, p.Method, paidAt)
	}
	if s := detail.Shipping; s != nil {
		tracking := "-"
		if s.TrackingCode != nil {
			tracking = *s.TrackingCode
		}
		fmt.Printf("  shipping: %s carrier=%s tracking=%s retries=%d\n", s.Status, s.Carrier, tracking, s.RetryCount)
	}
}

package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/melhorenvio"
	"github.com/bruno-romeu/balm-api/internal/repository"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// ShippingService quotes carrier services for a cart before checkout
type ShippingService struct {
	repos   *repository.Repositories
	carrier melhorenvio.API
	sender  config.SenderConfig
	logger  *zap.Logger
}

// NewShippingService creates a new shipping quote service
func NewShippingService(repos *repository.Repositories, carrier melhorenvio.API, sender config.SenderConfig, logger *zap.Logger) *ShippingService {
	return &ShippingService{
		repos:   repos,
		carrier: carrier,
		sender:  sender,
		logger:  logger,
	}
}

// Quote returns available carrier services for the cart, cheapest first
// ordering left to the caller
func (s *ShippingService) Quote(ctx context.Context, req QuoteShippingRequest) ([]QuoteOption, error) {
	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.repos.Product.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var insurance float64
	items := make([]*domain.OrderItemDetail, 0, len(req.Items))
	for _, cartItem := range req.Items {
		product, ok := products[cartItem.ProductID]
		if !ok {
			return nil, &errors.ErrNotFound{Resource: "product", ID: cartItem.ProductID.String()}
		}
		items = append(items, &domain.OrderItemDetail{
			OrderItem:   domain.OrderItem{Quantity: cartItem.Quantity},
			ProductSize: product.Size,
		})
		insurance += product.Price * float64(cartItem.Quantity)
	}

	quotes, err := s.carrier.Calculate(ctx, melhorenvio.QuoteRequest{
		FromPostalCode: s.sender.PostalCode,
		ToPostalCode:   req.ToPostalCode,
		Package:        buildPackage(items),
		InsuranceValue: insurance,
	})
	if err != nil {
		s.logger.Error("Failed to quote shipping", zap.Error(err))
		return nil, err
	}

	options := make([]QuoteOption, 0, len(quotes))
	for _, q := range quotes {
		if q.Error != "" {
			continue
		}
		options = append(options, QuoteOption{
			Service:      q.Name,
			Price:        q.PriceValue(),
			DeliveryDays: q.DeliveryTime,
		})
	}
	return options, nil
}

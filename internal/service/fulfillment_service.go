package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/config"
	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/internal/melhorenvio"
	"github.com/bruno-romeu/balm-api/internal/notify"
	"github.com/bruno-romeu/balm-api/internal/queue"
	"github.com/bruno-romeu/balm-api/internal/repository"
	"github.com/bruno-romeu/balm-api/pkg/document"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

// Carrier-imposed parcel minimums. Quotes and cart entries below these are
// rejected upstream, so the computed package is floored to them.
const (
	minPackageWeight = 0.3 // kg
	minPackageHeight = 2.0 // cm
	minPackageWidth  = 11.0
	minPackageLength = 16.0
)

// Per-item defaults applied when a product has no configured dimensions
const (
	defaultItemWeight = 0.3 // kg
	defaultItemHeight = 5.0 // cm
	defaultItemWidth  = 5.0
	defaultItemLength = 10.0
)

// FulfillmentService generates shipping labels for paid orders. ProcessOrder
// is the job handler the worker runs; each call is one attempt.
type FulfillmentService struct {
	repos   *repository.Repositories
	carrier melhorenvio.API
	mailer  notify.Dispatcher
	sender  config.SenderConfig
	logger  *zap.Logger
}

// NewFulfillmentService creates a new fulfillment service
func NewFulfillmentService(repos *repository.Repositories, carrier melhorenvio.API, mailer notify.Dispatcher, sender config.SenderConfig, logger *zap.Logger) *FulfillmentService {
	return &FulfillmentService{
		repos:   repos,
		carrier: carrier,
		mailer:  mailer,
		sender:  sender,
		logger:  logger,
	}
}

// ProcessOrder runs one label-generation attempt for an order. Transient
// carrier failures come back as *errors.ErrRetryable so the queue can
// re-schedule; anything else is permanent for this order.
func (s *FulfillmentService) ProcessOrder(ctx context.Context, job queue.FulfillmentJob) error {
	logger := s.logger.With(zap.String("order_id", job.OrderID.String()), zap.Int("attempt", job.Attempt))

	detail, err := s.repos.Order.GetDetail(ctx, job.OrderID)
	if err != nil {
		return err
	}

	// Only processing orders get labels. A replayed or delayed job for an
	// order canceled (or already shipped) in the meantime must not touch
	// the carrier or move the order off its current status.
	if detail.Order.Status != domain.OrderStatusProcessing {
		logger.Warn("Order is not processing, skipping fulfillment",
			zap.String("status", string(detail.Order.Status)))
		return nil
	}

	shipping := detail.Shipping
	if shipping == nil {
		shipping = &domain.Shipping{
			OrderID: job.OrderID,
			Status:  domain.ShippingStatusPending,
			Cost:    detail.Order.ShippingCost,
		}
		if err := s.repos.Shipping.Create(ctx, shipping); err != nil {
			return err
		}
	}

	// A label already generated means a duplicate or replayed job; done
	if shipping.LabelURL != nil && *shipping.LabelURL != "" {
		logger.Info("Label already generated, skipping")
		return nil
	}

	retryCount, err := s.repos.Shipping.MarkProcessing(ctx, shipping.ID)
	if err != nil {
		return err
	}
	logger.Info("Generating shipping label", zap.Int("retry_count", retryCount))

	labelURL, trackingCode, meOrderID, err := s.generateLabel(ctx, detail, shipping, logger)
	if err != nil {
		if markErr := s.repos.Shipping.MarkFailed(ctx, shipping.ID, err.Error()); markErr != nil {
			logger.Error("Failed to record shipping failure", zap.Error(markErr))
		}
		return err
	}

	if err := s.repos.Shipping.SaveLabel(ctx, shipping.ID, trackingCode, labelURL, meOrderID); err != nil {
		return err
	}
	if err := s.repos.Order.UpdateStatus(ctx, job.OrderID, domain.OrderStatusShipped); err != nil {
		return err
	}

	logger.Info("Shipping label generated",
		zap.String("tracking_code", trackingCode),
		zap.String("label_url", labelURL))

	// Notification is best-effort and must not block or fail the job
	go s.sendShippedEmail(detail, trackingCode)

	return nil
}

// generateLabel runs the carrier's four-step protocol: cart, checkout,
// generate, print. Each step's failure is tagged with its name so retries
// and logs say where the protocol broke.
func (s *FulfillmentService) generateLabel(ctx context.Context, detail *domain.OrderDetail, shipping *domain.Shipping, logger *zap.Logger) (labelURL, trackingCode, meOrderID string, err error) {
	payerDoc, err := s.resolveDocument(detail)
	if err != nil {
		return "", "", "", err
	}

	pkg := buildPackage(detail.Items)
	serviceID, err := s.resolveService(ctx, detail, shipping, pkg, logger)
	if err != nil {
		return "", "", "", err
	}

	products := make([]melhorenvio.CartProduct, 0, len(detail.Items))
	for _, item := range detail.Items {
		products = append(products, melhorenvio.CartProduct{
			Name:         item.ProductName,
			Quantity:     item.Quantity,
			UnitaryValue: item.Price,
		})
	}

	complement := ""
	if detail.Address.Complement != nil {
		complement = *detail.Address.Complement
	}
	payload := melhorenvio.CartPayload{
		Service: serviceID,
		From: melhorenvio.Party{
			Name:       s.sender.Name,
			Phone:      s.sender.Phone,
			Email:      s.sender.Email,
			Document:   s.sender.Document,
			PostalCode: s.sender.PostalCode,
			Address:    s.sender.Street,
			Number:     s.sender.Number,
			District:   s.sender.District,
			City:       s.sender.City,
			StateAbbr:  s.sender.StateAbbr,
			CountryID:  "BR",
		},
		To: melhorenvio.Party{
			Name:       detail.Customer.FirstName + " " + detail.Customer.LastName,
			Phone:      detail.Customer.Phone,
			Email:      detail.Customer.Email,
			Document:   payerDoc,
			PostalCode: document.CleanPostalCode(detail.Address.Zipcode),
			Address:    detail.Address.Street,
			Number:     detail.Address.Number,
			Complement: complement,
			District:   detail.Address.Neighborhood,
			City:       detail.Address.City,
			StateAbbr:  detail.Address.State,
			CountryID:  "BR",
		},
		Products: products,
		Volumes:  []melhorenvio.Package{pkg},
		Options: melhorenvio.CartOptions{
			InsuranceValue: detail.Order.Total,
			NonCommercial:  true,
			Platform:       "Balm",
		},
	}

	entry, err := s.carrier.AddToCart(ctx, payload)
	if err != nil {
		return "", "", "", &errors.ErrRetryable{Step: "cart", Cause: err}
	}

	orderIDs := []string{entry.ID}
	if err := s.carrier.Checkout(ctx, orderIDs); err != nil {
		return "", "", "", &errors.ErrRetryable{Step: "checkout", Cause: err}
	}
	if err := s.carrier.GenerateLabels(ctx, orderIDs); err != nil {
		return "", "", "", &errors.ErrRetryable{Step: "generate", Cause: err}
	}
	url, err := s.carrier.PrintLabels(ctx, orderIDs)
	if err != nil {
		return "", "", "", &errors.ErrRetryable{Step: "print", Cause: err}
	}

	return url, entry.Tracking, entry.ID, nil
}

// resolveDocument returns the recipient tax id for the label: the customer
// profile's CPF first, the payment payer document as fallback. A missing or
// invalid document is a permanent failure for this order.
func (s *FulfillmentService) resolveDocument(detail *domain.OrderDetail) (string, error) {
	candidates := make([]string, 0, 2)
	if detail.Customer.CPF != nil {
		candidates = append(candidates, *detail.Customer.CPF)
	}
	if detail.Payment != nil && detail.Payment.PayerDocument != nil {
		candidates = append(candidates, *detail.Payment.PayerDocument)
	}

	for _, raw := range candidates {
		cleaned := document.CleanCPF(raw)
		if document.ValidCPF(cleaned) {
			return cleaned, nil
		}
	}

	return "", &errors.ErrInvalidDocument{
		Document: strings.Join(candidates, ","),
		Reason:   "no valid CPF on customer profile or payment",
	}
}

// resolveService re-quotes the shipment and picks the service whose name
// matches the carrier chosen at checkout. No match, or no recorded choice,
// falls back to the cheapest available service.
func (s *FulfillmentService) resolveService(ctx context.Context, detail *domain.OrderDetail, shipping *domain.Shipping, pkg melhorenvio.Package, logger *zap.Logger) (string, error) {
	quotes, err := s.carrier.Calculate(ctx, melhorenvio.QuoteRequest{
		FromPostalCode: s.sender.PostalCode,
		ToPostalCode:   document.CleanPostalCode(detail.Address.Zipcode),
		Package:        pkg,
		InsuranceValue: detail.Order.Total,
	})
	if err != nil {
		return "", &errors.ErrRetryable{Step: "quote", Cause: err}
	}

	available := quotes[:0]
	for _, q := range quotes {
		if q.Error == "" {
			available = append(available, q)
		}
	}
	if len(available) == 0 {
		return "", &errors.ErrRetryable{Step: "quote", Cause: fmt.Errorf("no carrier service available for destination")}
	}

	wanted := strings.ToLower(strings.TrimSpace(shipping.Carrier))
	if wanted != "" {
		for _, q := range available {
			if strings.Contains(strings.ToLower(q.Name), wanted) || strings.Contains(wanted, strings.ToLower(q.Name)) {
				return q.ID.String(), nil
			}
		}
		logger.Warn("Chosen carrier unavailable, falling back to cheapest",
			zap.String("carrier", shipping.Carrier))
	}

	cheapest := available[0]
	for _, q := range available[1:] {
		if q.PriceValue() < cheapest.PriceValue() {
			cheapest = q
		}
	}
	return cheapest.ID.String(), nil
}

// buildPackage folds all order items into one parcel: weights add up,
// height/width/length take the largest item's dimensions. The result is
// floored to the carrier minimums.
func buildPackage(items []*domain.OrderItemDetail) melhorenvio.Package {
	var pkg melhorenvio.Package
	for _, item := range items {
		weight, height, width, length := defaultItemWeight, defaultItemHeight, defaultItemWidth, defaultItemLength
		if size := item.ProductSize; size != nil {
			if size.Weight > 0 {
				weight = size.Weight
			}
			if size.Height > 0 {
				height = size.Height
			}
			if size.Width > 0 {
				width = size.Width
			}
			if size.Length > 0 {
				length = size.Length
			}
		}

		qty := float64(item.Quantity)
		pkg.Weight += weight * qty
		if height > pkg.Height {
			pkg.Height = height
		}
		if width > pkg.Width {
			pkg.Width = width
		}
		if length > pkg.Length {
			pkg.Length = length
		}
	}

	if pkg.Weight < minPackageWeight {
		pkg.Weight = minPackageWeight
	}
	if pkg.Height < minPackageHeight {
		pkg.Height = minPackageHeight
	}
	if pkg.Width < minPackageWidth {
		pkg.Width = minPackageWidth
	}
	if pkg.Length < minPackageLength {
		pkg.Length = minPackageLength
	}
	return pkg
}

func (s *FulfillmentService) sendShippedEmail(detail *domain.OrderDetail, trackingCode string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	subject := "Seu pedido foi enviado!"
	html := fmt.Sprintf(
		"<p>Olá %s,</p><p>Seu pedido <strong>%s</strong> foi enviado.</p><p>Código de rastreio: <strong>%s</strong></p>",
		detail.Customer.FirstName, detail.Order.ID.String(), trackingCode)

	if err := s.mailer.Send(ctx, detail.Customer.Email, subject, html); err != nil {
		s.logger.Warn("Failed to send shipped e-mail",
			zap.String("order_id", detail.Order.ID.String()),
			zap.Error(err))
	}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order represents one customer purchase
type Order struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	AddressID    uuid.UUID
	Status       OrderStatus
	Total        float64 // products only, shipping excluded
	ShippingCost float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem represents a line item on an order. Price is captured at order
// creation time and never follows the live product price.
type OrderItem struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ProductID         uuid.UUID
	Quantity          int
	BackorderQuantity int // portion unfulfillable from stock at reservation time
	Price             float64
	Customization     map[string]interface{} // JSONB
	CreatedAt         time.Time
}

// Payment represents one provider-side payment attempt, 1:1 with an order
type Payment struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	Status            PaymentStatus
	Method            string
	PreferenceID      *string
	ProviderPaymentID *string
	PayerDocument     *string // tax id captured from the provider payload, used for carrier labels
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Shipping represents one fulfillment record, 1:1 with an order
type Shipping struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	Status             ShippingStatus
	Carrier            string // human-readable service name chosen at checkout (e.g. "SEDEX")
	TrackingCode       *string
	LabelURL           *string
	MelhorEnvioOrderID *string
	RetryCount         int
	ErrorMessage       *string
	LabelGeneratedAt   *time.Time
	EstimatedDelivery  *time.Time
	Cost               float64
	UpdatedAt          time.Time
}

// ProductSize holds the physical dimensions used for carrier quoting.
// Zero values mean "not configured"; the fulfillment worker applies
// per-item defaults before the carrier minimum floors.
type ProductSize struct {
	Weight float64 // kg
	Height float64 // cm
	Width  float64 // cm
	Length float64 // cm
}

// Product is the stock-relevant slice of the catalog product
type Product struct {
	ID            uuid.UUID
	Name          string
	Price         float64
	StockQuantity int
	Stock         bool // derived: StockQuantity > 0
	Size          *ProductSize
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Customer is the slice of the customer profile the workflow needs
type Customer struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CPF       *string
	CreatedAt time.Time
}

// Address is a customer shipping address
type Address struct {
	ID           uuid.UUID
	CustomerID   uuid.UUID
	Street       string
	Number       string
	Complement   *string
	Neighborhood string
	City         string
	State        string
	Zipcode      string
	CreatedAt    time.Time
}

// OrderItemDetail is an order item joined with its product
type OrderItemDetail struct {
	OrderItem
	ProductName string
	ProductSize *ProductSize
}

// OrderDetail aggregates everything the fulfillment worker needs in one load
type OrderDetail struct {
	Order    Order
	Items    []*OrderItemDetail
	Customer Customer
	Address  Address
	Payment  *Payment
	Shipping *Shipping
}

package domain

// OrderStatus represents the lifecycle status of an order
type OrderStatus string

const (
	// PENDING - order created, awaiting payment
	OrderStatusPending OrderStatus = "pending"
	// PAID - payment confirmed, fulfillment not yet queued
	OrderStatusPaid OrderStatus = "paid"
	// PROCESSING - payment confirmed and fulfillment queued
	OrderStatusProcessing OrderStatus = "processing"
	// SHIPPED - shipping label generated, package handed to carrier
	OrderStatusShipped OrderStatus = "shipped"
	// DELIVERED - package delivered to the customer
	OrderStatusDelivered OrderStatus = "delivered"
	// CANCELED - order canceled, stock released
	OrderStatusCanceled OrderStatus = "canceled"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusPaid,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusPaid ||
			newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusCanceled
	case OrderStatusPaid:
		return newStatus == OrderStatusProcessing ||
			newStatus == OrderStatusCanceled
	case OrderStatusProcessing:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusCanceled
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCanceled:
		return false // Terminal states
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// PaymentStatus represents the status of a payment attempt
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusInProcess PaymentStatus = "in_process"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// PaymentStatusFromProvider maps a Mercado Pago payment status to the local
// vocabulary. Unknown provider statuses map to pending so a new provider
// status never silently drops a notification.
func PaymentStatusFromProvider(providerStatus string) PaymentStatus {
	switch providerStatus {
	case "approved":
		return PaymentStatusApproved
	case "pending", "authorized":
		return PaymentStatusPending
	case "in_process", "in_mediation":
		return PaymentStatusInProcess
	case "rejected":
		return PaymentStatusRejected
	case "refunded", "charged_back":
		return PaymentStatusRefunded
	case "cancelled":
		return PaymentStatusCancelled
	default:
		return PaymentStatusPending
	}
}

// ShippingStatus represents the status of a fulfillment record
type ShippingStatus string

const (
	ShippingStatusPending    ShippingStatus = "pending"
	ShippingStatusProcessing ShippingStatus = "processing"
	ShippingStatusShipped    ShippingStatus = "shipped"
	ShippingStatusDelivered  ShippingStatus = "delivered"
	ShippingStatusReturned   ShippingStatus = "returned"
	ShippingStatusFailed     ShippingStatus = "failed"
)

// IsValid checks if the shipping status is valid
func (s ShippingStatus) IsValid() bool {
	switch s {
	case ShippingStatusPending,
		ShippingStatusProcessing,
		ShippingStatusShipped,
		ShippingStatusDelivered,
		ShippingStatusReturned,
		ShippingStatusFailed:
		return true
	default:
		return false
	}
}

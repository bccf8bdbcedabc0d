package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlacedNotice is the payload handed to the notifier after checkout
type OrderPlacedNotice struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	PaymentMethod PaymentMethod
	ItemCount     int
	Total         decimal.Decimal
}

// OrderShippedNotice is the payload handed to the notifier at shipment
type OrderShippedNotice struct {
	OrderNumber       string
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     string
	TrackingNumber    string
	CourierName       string
	EstimatedDelivery *time.Time
}

// OrderCancelledNotice is the payload handed to the notifier on cancellation
type OrderCancelledNotice struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Notifier is the outbound hand-off for customer-facing order messages.
// Called fire-and-forget after commit; a failed notification never unwinds
// the order it describes.
type Notifier interface {
	OrderPlaced(ctx context.Context, notice OrderPlacedNotice) error
	OrderShipped(ctx context.Context, notice OrderShippedNotice) error
	OrderCancelled(ctx context.Context, notice OrderCancelledNotice) error
}

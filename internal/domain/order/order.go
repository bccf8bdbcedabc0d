package order

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributeMap stores a variant's selected attributes (size, color, ...) as
// a JSON object in a text column
type AttributeMap map[string]string

// Value implements driver.Valuer
func (m AttributeMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *AttributeMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into AttributeMap", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// OrderItem is a frozen snapshot of what was bought: names, sku, price and
// attributes are copied at purchase time and never follow later catalog
// edits or deletions.
type OrderItem struct {
	shared.BaseEntity
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_items_order"`
	VariantID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName        string          `gorm:"type:varchar(255);not null"`
	VariantName        string          `gorm:"type:varchar(255)"`
	SKU                string          `gorm:"type:varchar(100)"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity           int             `gorm:"not null"`
	LineTotal          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AttributesSnapshot AttributeMap    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// CustomerInfo identifies who placed the order. UserID is nil for guest
// checkouts; the contact fields are always snapshotted onto the order.
type CustomerInfo struct {
	UserID *uuid.UUID
	Name   string
	Email  string
	Phone  string
}

// ShippingInfo is where and how the order is delivered
type ShippingInfo struct {
	Address string
	Area    string
	Notes   string
}

// ShipmentInfo is the courier hand-off recorded at the shipped transition
type ShipmentInfo struct {
	TrackingNumber    string
	CourierName       string
	EstimatedDelivery *time.Time
}

// ItemInput describes one order line at creation time
type ItemInput struct {
	VariantID   uuid.UUID
	ProductName string
	VariantName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int
	Attributes  map[string]string
}

// NewOrderInput carries everything needed to create an order
type NewOrderInput struct {
	OrderNumber    string
	Customer       CustomerInfo
	Shipping       ShippingInfo
	PaymentMethod  PaymentMethod
	CouponCode     string
	IdempotencyKey string
	Items          []ItemInput
	DiscountAmount decimal.Decimal
	ShippingCost   decimal.Decimal
	TaxAmount      decimal.Decimal
}

// Order is the immutable financial record produced by checkout. Totals are
// computed once in NewOrder and never recalculated; later catalog or pricing
// changes must not move an already-placed order.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string          `gorm:"type:varchar(30);not null;uniqueIndex:idx_orders_number"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index:idx_orders_user"`
	CustomerName    string          `gorm:"type:varchar(255);not null"`
	CustomerEmail   string          `gorm:"type:varchar(255);index"`
	CustomerPhone   string          `gorm:"type:varchar(50);not null"`
	ShippingAddress string          `gorm:"type:text;not null"`
	ShippingArea    string          `gorm:"type:varchar(100);not null"`
	Notes           string          `gorm:"type:text"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index:idx_orders_status"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(20);not null"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingCost    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CouponCode      string          `gorm:"type:varchar(50)"`
	IdempotencyKey  *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_idempotency_key"`

	TrackingNumber    string     `gorm:"type:varchar(100)"`
	CourierName       string     `gorm:"type:varchar(100)"`
	EstimatedDelivery *time.Time `gorm:"type:timestamptz"`

	ConfirmedAt *time.Time `gorm:"type:timestamptz"`
	ShippedAt   *time.Time `gorm:"type:timestamptz"`
	DeliveredAt *time.Time `gorm:"type:timestamptz"`
	CancelledAt *time.Time `gorm:"type:timestamptz"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates an order in pending status with frozen item snapshots and
// totals. total = subtotal - discount + shipping + tax holds by construction.
func NewOrder(in NewOrderInput) (*Order, error) {
	if strings.TrimSpace(in.OrderNumber) == "" {
		return nil, shared.NewValidationError("Order number cannot be empty")
	}
	if strings.TrimSpace(in.Customer.Name) == "" {
		return nil, shared.NewValidationError("Customer name cannot be empty")
	}
	if strings.TrimSpace(in.Customer.Phone) == "" {
		return nil, shared.NewValidationError("Customer phone cannot be empty")
	}
	if strings.TrimSpace(in.Shipping.Address) == "" {
		return nil, shared.NewValidationError("Shipping address cannot be empty")
	}
	if strings.TrimSpace(in.Shipping.Area) == "" {
		return nil, shared.NewValidationError("Shipping area cannot be empty")
	}
	if !in.PaymentMethod.IsValid() {
		return nil, shared.NewValidationError("Invalid payment method")
	}
	if len(in.Items) == 0 {
		return nil, shared.NewValidationError("Order must have at least one item")
	}
	if in.DiscountAmount.IsNegative() || in.ShippingCost.IsNegative() || in.TaxAmount.IsNegative() {
		return nil, shared.NewValidationError("Order amounts cannot be negative")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       strings.TrimSpace(in.OrderNumber),
		UserID:            in.Customer.UserID,
		CustomerName:      strings.TrimSpace(in.Customer.Name),
		CustomerEmail:     strings.TrimSpace(in.Customer.Email),
		CustomerPhone:     strings.TrimSpace(in.Customer.Phone),
		ShippingAddress:   strings.TrimSpace(in.Shipping.Address),
		ShippingArea:      strings.TrimSpace(in.Shipping.Area),
		Notes:             strings.TrimSpace(in.Shipping.Notes),
		Status:            StatusPending,
		PaymentMethod:     in.PaymentMethod,
		PaymentStatus:     PaymentStatusPending,
		DiscountAmount:    in.DiscountAmount,
		ShippingCost:      in.ShippingCost,
		TaxAmount:         in.TaxAmount,
		CouponCode:        in.CouponCode,
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		o.IdempotencyKey = &key
	}

	subtotal := decimal.Zero
	for _, item := range in.Items {
		if item.VariantID == uuid.Nil {
			return nil, shared.NewValidationError("Order item variant is required")
		}
		if strings.TrimSpace(item.ProductName) == "" {
			return nil, shared.NewValidationError("Order item product name cannot be empty")
		}
		if item.Quantity < 1 {
			return nil, shared.NewValidationError("Order item quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return nil, shared.NewValidationError("Order item price cannot be negative")
		}

		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		o.Items = append(o.Items, OrderItem{
			BaseEntity:         shared.NewBaseEntity(),
			OrderID:            o.ID,
			VariantID:          item.VariantID,
			ProductName:        item.ProductName,
			VariantName:        item.VariantName,
			SKU:                item.SKU,
			UnitPrice:          item.UnitPrice,
			Quantity:           item.Quantity,
			LineTotal:          lineTotal,
			AttributesSnapshot: item.Attributes,
		})
		subtotal = subtotal.Add(lineTotal)
	}

	if in.DiscountAmount.GreaterThan(subtotal) {
		return nil, shared.NewValidationError("Discount cannot exceed the order subtotal")
	}

	o.Subtotal = subtotal
	o.Total = subtotal.Sub(in.DiscountAmount).Add(in.ShippingCost).Add(in.TaxAmount)

	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return o, nil
}

// IsGuest returns true for orders placed without an account
func (o *Order) IsGuest() bool {
	return o.UserID == nil
}

// ItemCount returns the summed quantity across all lines
func (o *Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// Confirm moves the order from pending to confirmed
func (o *Order) Confirm(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusConfirmed) {
		return o.transitionError(StatusConfirmed)
	}
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	return nil
}

// StartProcessing moves the order from confirmed to processing
func (o *Order) StartProcessing(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusProcessing) {
		return o.transitionError(StatusProcessing)
	}
	o.Status = StatusProcessing
	o.UpdatedAt = now
	o.IncrementVersion()
	return nil
}

// Ship moves the order from processing to shipped, recording the courier
// hand-off
func (o *Order) Ship(now time.Time, shipment ShipmentInfo) error {
	if !o.Status.CanTransitionTo(StatusShipped) {
		return o.transitionError(StatusShipped)
	}
	o.Status = StatusShipped
	o.ShippedAt = &now
	o.TrackingNumber = strings.TrimSpace(shipment.TrackingNumber)
	o.CourierName = strings.TrimSpace(shipment.CourierName)
	o.EstimatedDelivery = shipment.EstimatedDelivery
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderShippedEvent(o))
	return nil
}

// Deliver moves the order from shipped to delivered
func (o *Order) Deliver(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusDelivered) {
		return o.transitionError(StatusDelivered)
	}
	o.Status = StatusDelivered
	o.DeliveredAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	return nil
}

// Cancel moves the order to cancelled. Only pending and confirmed orders can
// be cancelled; the caller restores stock for every item in the same
// transaction.
func (o *Order) Cancel(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return o.transitionError(StatusCancelled)
	}
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderCancelledEvent(o))
	return nil
}

// MarkRefunded moves a delivered order to refunded. Reached through the
// return workflow, never as a direct status change.
func (o *Order) MarkRefunded(now time.Time) error {
	if !o.Status.CanTransitionTo(StatusRefunded) {
		return o.transitionError(StatusRefunded)
	}
	o.Status = StatusRefunded
	o.PaymentStatus = PaymentStatusRefunded
	o.UpdatedAt = now
	o.IncrementVersion()
	return nil
}

// ApplyPaymentResult updates the payment status from a recorded gateway
// transaction. A completed attempt marks the order paid; a failed attempt
// marks it failed unless a previous attempt already succeeded.
func (o *Order) ApplyPaymentResult(status TransactionStatus) {
	switch status {
	case TransactionCompleted:
		o.PaymentStatus = PaymentStatusPaid
	case TransactionFailed:
		if o.PaymentStatus != PaymentStatusPaid {
			o.PaymentStatus = PaymentStatusFailed
		}
	}
	o.Touch()
	o.IncrementVersion()
}

func (o *Order) transitionError(target OrderStatus) error {
	return shared.NewInvalidOperationError(
		fmt.Sprintf("Cannot transition order from %s to %s", o.Status, target))
}

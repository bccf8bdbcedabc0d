package order

import (
	"time"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest carries everything a shopper submits to turn their cart
// into an order. The cart itself is resolved from the caller's identity,
// the idempotency key from the Idempotency-Key header.
type CheckoutRequest struct {
	CustomerName    string `json:"customer_name" binding:"required,max=255"`
	CustomerEmail   string `json:"customer_email" binding:"omitempty,email,max=255"`
	CustomerPhone   string `json:"customer_phone" binding:"required,max=50"`
	ShippingAddress string `json:"shipping_address" binding:"required,max=1000"`
	ShippingArea    string `json:"shipping_area" binding:"required,max=100"`
	Notes           string `json:"notes" binding:"omitempty,max=1000"`
	PaymentMethod   string `json:"payment_method" binding:"required,oneof=cod bkash nagad card"`
	CouponCode      string `json:"coupon_code" binding:"omitempty,max=50"`

	// ConfirmPriceChanges acknowledges price-drift warnings from a previous
	// attempt; the drifted lines are re-priced at the live catalog price.
	ConfirmPriceChanges bool `json:"confirm_price_changes"`
}

// CheckoutResponse is the created order plus checkout-time advisories.
// ShippingZoneExactMatch mirrors the shipping quote's exact_match flag: false
// means no active zone lists the requested area and the fallback zone priced
// the delivery, which the storefront should tell the shopper.
type CheckoutResponse struct {
	OrderResponse
	ShippingZoneExactMatch bool `json:"shipping_zone_exact_match"`
}

// StatusChangeRequest moves an order to a new status. Shipment fields are
// only read when the target status is shipped. Refunded is not a valid
// target here; it is reached through the return workflow.
type StatusChangeRequest struct {
	Status            string     `json:"status" binding:"required,oneof=confirmed processing shipped delivered cancelled"`
	Actor             string     `json:"actor" binding:"omitempty,max=255"`
	Notes             string     `json:"notes" binding:"omitempty,max=1000"`
	TrackingNumber    string     `json:"tracking_number" binding:"omitempty,max=100"`
	CourierName       string     `json:"courier_name" binding:"omitempty,max=100"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

// PaymentRequest records the outcome of one payment attempt against an order
type PaymentRequest struct {
	Provider    string          `json:"provider" binding:"required,max=50"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Status      string          `json:"status" binding:"required,oneof=pending completed failed"`
	Reference   string          `json:"reference" binding:"omitempty,max=255"`
	RawResponse string          `json:"raw_response" binding:"omitempty,max=10000"`
}

// ReturnItemInput selects one order item and quantity for a return
type ReturnItemInput struct {
	OrderItemID uuid.UUID `json:"order_item_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
}

// CreateReturnRequest opens a return for a delivered order. An empty item
// list means the full order is being returned.
type CreateReturnRequest struct {
	Reason string            `json:"reason" binding:"required,max=1000"`
	Items  []ReturnItemInput `json:"items" binding:"omitempty,dive"`
}

// ProcessReturnRequest approves or rejects a pending return. A refund
// amount on approval closes the return as refunded and marks the order
// refunded; without one the return completes as a plain restock.
type ProcessReturnRequest struct {
	Approve      bool             `json:"approve"`
	Actor        string           `json:"actor" binding:"omitempty,max=255"`
	Notes        string           `json:"notes" binding:"omitempty,max=1000"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
}

// OrderListFilter represents filter parameters for listing orders
type OrderListFilter struct {
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	Search        string `form:"search"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir"`
}

// ReturnListFilter represents filter parameters for listing return requests
type ReturnListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
}

// OrderItemResponse is one frozen line of an order
type OrderItemResponse struct {
	ID          uuid.UUID         `json:"id"`
	VariantID   uuid.UUID         `json:"variant_id"`
	ProductName string            `json:"product_name"`
	VariantName string            `json:"variant_name,omitempty"`
	SKU         string            `json:"sku,omitempty"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	LineTotal   decimal.Decimal   `json:"line_total"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	OrderNumber       string              `json:"order_number"`
	UserID            *uuid.UUID          `json:"user_id,omitempty"`
	CustomerName      string              `json:"customer_name"`
	CustomerEmail     string              `json:"customer_email,omitempty"`
	CustomerPhone     string              `json:"customer_phone"`
	ShippingAddress   string              `json:"shipping_address"`
	ShippingArea      string              `json:"shipping_area"`
	Notes             string              `json:"notes,omitempty"`
	Status            string              `json:"status"`
	PaymentMethod     string              `json:"payment_method"`
	PaymentStatus     string              `json:"payment_status"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	DiscountAmount    decimal.Decimal     `json:"discount_amount"`
	ShippingCost      decimal.Decimal     `json:"shipping_cost"`
	TaxAmount         decimal.Decimal     `json:"tax_amount"`
	Total             decimal.Decimal     `json:"total"`
	CouponCode        string              `json:"coupon_code,omitempty"`
	TrackingNumber    string              `json:"tracking_number,omitempty"`
	CourierName       string              `json:"courier_name,omitempty"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery,omitempty"`
	ConfirmedAt       *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt         *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Version           int                 `json:"version"`
}

// StatusLogResponse is one entry of an order's status audit trail
type StatusLogResponse struct {
	ID         uuid.UUID `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PaymentTransactionResponse is one recorded payment attempt
type PaymentTransactionResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"order_id"`
	Provider          string          `json:"provider"`
	Amount            decimal.Decimal `json:"amount"`
	Status            string          `json:"status"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// ReturnItemResponse is one line of a return request's frozen snapshot
type ReturnItemResponse struct {
	OrderItemID uuid.UUID       `json:"order_item_id"`
	VariantID   uuid.UUID       `json:"variant_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ReturnRequestResponse represents a return request in API responses
type ReturnRequestResponse struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"order_id"`
	Status          string               `json:"status"`
	Reason          string               `json:"reason"`
	Items           []ReturnItemResponse `json:"items"`
	RefundAmount    *decimal.Decimal     `json:"refund_amount,omitempty"`
	ProcessedBy     string               `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time           `json:"processed_at,omitempty"`
	ProcessingNotes string               `json:"processing_notes,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Version         int                  `json:"version"`
}

// OrderDetailResponse is the full admin view: the order plus its audit
// trail, payment attempts and any return requests.
type OrderDetailResponse struct {
	OrderResponse
	StatusHistory []StatusLogResponse          `json:"status_history"`
	Payments      []PaymentTransactionResponse `json:"payments"`
	Returns       []ReturnRequestResponse      `json:"returns"`
}

// CheckoutBlockedError is returned when checkout validation finds problems
// with the cart. It carries the full issue list so the shopper sees every
// reason at once.
type CheckoutBlockedError struct {
	Issues []cart.Issue
}

// Error implements the error interface
func (e *CheckoutBlockedError) Error() string {
	return "Cart failed checkout validation"
}

// ToOrderItemResponse converts a domain order item to its response DTO
func ToOrderItemResponse(item *order.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:          item.ID,
		VariantID:   item.VariantID,
		ProductName: item.ProductName,
		VariantName: item.VariantName,
		SKU:         item.SKU,
		UnitPrice:   item.UnitPrice,
		Quantity:    item.Quantity,
		LineTotal:   item.LineTotal,
		Attributes:  item.AttributesSnapshot,
	}
}

// ToOrderResponse converts a domain order to its response DTO
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for i := range o.Items {
		items = append(items, ToOrderItemResponse(&o.Items[i]))
	}
	return &OrderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		CustomerName:      o.CustomerName,
		CustomerEmail:     o.CustomerEmail,
		CustomerPhone:     o.CustomerPhone,
		ShippingAddress:   o.ShippingAddress,
		ShippingArea:      o.ShippingArea,
		Notes:             o.Notes,
		Status:            o.Status.String(),
		PaymentMethod:     o.PaymentMethod.String(),
		PaymentStatus:     string(o.PaymentStatus),
		Subtotal:          o.Subtotal,
		DiscountAmount:    o.DiscountAmount,
		ShippingCost:      o.ShippingCost,
		TaxAmount:         o.TaxAmount,
		Total:             o.Total,
		CouponCode:        o.CouponCode,
		TrackingNumber:    o.TrackingNumber,
		CourierName:       o.CourierName,
		EstimatedDelivery: o.EstimatedDelivery,
		ConfirmedAt:       o.ConfirmedAt,
		ShippedAt:         o.ShippedAt,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Version:           o.Version,
	}
}

// ToOrderResponses converts a slice of domain orders
func ToOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, *ToOrderResponse(&orders[i]))
	}
	return out
}

// ToStatusLogResponse converts a status log entry to its response DTO
func ToStatusLogResponse(entry *order.StatusLogEntry) StatusLogResponse {
	return StatusLogResponse{
		ID:         entry.ID,
		FromStatus: entry.FromStatus.String(),
		ToStatus:   entry.ToStatus.String(),
		Actor:      entry.Actor,
		Notes:      entry.Notes,
		OccurredAt: entry.OccurredAt,
	}
}

// ToPaymentTransactionResponse converts a payment transaction to its response DTO
func ToPaymentTransactionResponse(tx *order.PaymentTransaction) *PaymentTransactionResponse {
	return &PaymentTransactionResponse{
		ID:                tx.ID,
		OrderID:           tx.OrderID,
		Provider:          tx.Provider,
		Amount:            tx.Amount,
		Status:            string(tx.Status),
		ProviderReference: tx.ProviderReference,
		OccurredAt:        tx.OccurredAt,
	}
}

// ToReturnRequestResponse converts a return request to its response DTO
func ToReturnRequestResponse(r *order.ReturnRequest) *ReturnRequestResponse {
	items := make([]ReturnItemResponse, 0, len(r.ItemsSnapshot))
	for _, item := range r.ItemsSnapshot {
		items = append(items, ReturnItemResponse{
			OrderItemID: item.OrderItemID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return &ReturnRequestResponse{
		ID:              r.ID,
		OrderID:         r.OrderID,
		Status:          string(r.Status),
		Reason:          r.Reason,
		Items:           items,
		RefundAmount:    r.RefundAmount,
		ProcessedBy:     r.ProcessedBy,
		ProcessedAt:     r.ProcessedAt,
		ProcessingNotes: r.ProcessingNotes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
}

package cart

import (
	"time"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartOwner identifies whose cart an operation targets. Exactly one of UserID
// and SessionKey is expected; when a request carries both, the authenticated
// user wins.
type CartOwner struct {
	UserID     *uuid.UUID
	SessionKey string
}

// IsGuest returns true when the owner is an anonymous session
func (o CartOwner) IsGuest() bool {
	return o.UserID == nil
}

// UserOwner builds an owner for an authenticated user
func UserOwner(userID uuid.UUID) CartOwner {
	return CartOwner{UserID: &userID}
}

// GuestOwner builds an owner for an anonymous session
func GuestOwner(sessionKey string) CartOwner {
	return CartOwner{SessionKey: sessionKey}
}

// AddItemRequest represents a request to add a variant to the cart
type AddItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// UpdateItemRequest represents a request to change a cart line's quantity
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// MergeRequest carries the guest session whose cart is folded into the
// authenticated user's cart
type MergeRequest struct {
	SessionKey string `json:"session_key" binding:"required,max=64"`
}

// CartLineResponse represents one cart line in API responses, enriched with
// live catalog data where the variant is still known
type CartLineResponse struct {
	ID           uuid.UUID         `json:"id"`
	VariantID    uuid.UUID         `json:"variant_id"`
	ProductName  string            `json:"product_name,omitempty"`
	VariantName  string            `json:"variant_name,omitempty"`
	SKU          string            `json:"sku,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Quantity     int               `json:"quantity"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	LineTotal    decimal.Decimal   `json:"line_total"`
	CurrentPrice *decimal.Decimal  `json:"current_price,omitempty"`
	Purchasable  bool              `json:"purchasable"`
}

// CartResponse represents a cart in API responses
type CartResponse struct {
	ID            uuid.UUID          `json:"id"`
	UserID        *uuid.UUID         `json:"user_id,omitempty"`
	IsGuest       bool               `json:"is_guest"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	Lines         []CartLineResponse `json:"lines"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TotalQuantity int                `json:"total_quantity"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ValidationResponse is the aggregated outcome of checkout validation.
// Valid means no blocking issue; warnings may still be present.
type ValidationResponse struct {
	Valid  bool         `json:"valid"`
	Issues []cart.Issue `json:"issues"`
}

// RefreshPricesResponse reports a price re-snapshot
type RefreshPricesResponse struct {
	Cart         CartResponse `json:"cart"`
	LinesChanged int          `json:"lines_changed"`
}

// ToCartResponse converts a domain cart plus its catalog context into a
// response DTO. Variants absent from the map render from the snapshot alone.
func ToCartResponse(c *cart.Cart, variants map[uuid.UUID]catalog.VariantInfo) CartResponse {
	lines := make([]CartLineResponse, 0, len(c.Lines))
	for i := range c.Lines {
		line := &c.Lines[i]
		resp := CartLineResponse{
			ID:        line.ID,
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPriceSnapshot,
			LineTotal: line.LineTotal(),
		}
		if info, ok := variants[line.VariantID]; ok {
			resp.ProductName = info.ProductName
			resp.VariantName = info.VariantName
			resp.SKU = info.SKU
			resp.Attributes = info.Attributes
			price := info.Price
			resp.CurrentPrice = &price
			resp.Purchasable = info.Purchasable()
		}
		lines = append(lines, resp)
	}

	return CartResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		IsGuest:       c.IsGuest(),
		ExpiresAt:     c.ExpiresAt,
		Lines:         lines,
		Subtotal:      c.Subtotal(),
		TotalQuantity: c.TotalQuantity(),
		UpdatedAt:     c.UpdatedAt,
	}
}

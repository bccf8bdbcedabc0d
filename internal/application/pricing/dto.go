package pricing

import (
	"time"

	"github.com/ecom/backend/internal/domain/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingZoneResponse represents a shipping zone in API responses
type ShippingZoneResponse struct {
	ID                    uuid.UUID        `json:"id"`
	Name                  string           `json:"name"`
	Areas                 []string         `json:"areas"`
	ShippingCost          decimal.Decimal  `json:"shipping_cost"`
	FreeShippingThreshold *decimal.Decimal `json:"free_shipping_threshold,omitempty"`
	EstimatedDays         int              `json:"estimated_days"`
	IsActive              bool             `json:"is_active"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	Version               int              `json:"version"`
}

// CreateShippingZoneRequest represents a request to create a shipping zone
type CreateShippingZoneRequest struct {
	Name                  string           `json:"name" binding:"required,max=100"`
	Areas                 []string         `json:"areas" binding:"required,min=1,dive,required,max=100"`
	ShippingCost          decimal.Decimal  `json:"shipping_cost"`
	FreeShippingThreshold *decimal.Decimal `json:"free_shipping_threshold,omitempty"`
	EstimatedDays         int              `json:"estimated_days" binding:"omitempty,min=0,max=90"`
}

// UpdateShippingZoneRequest represents a partial update to a shipping zone.
// ClearFreeShippingThreshold removes the threshold; it wins over a new value.
type UpdateShippingZoneRequest struct {
	Name                       *string          `json:"name,omitempty" binding:"omitempty,max=100"`
	Areas                      []string         `json:"areas,omitempty" binding:"omitempty,min=1,dive,required,max=100"`
	ShippingCost               *decimal.Decimal `json:"shipping_cost,omitempty"`
	FreeShippingThreshold      *decimal.Decimal `json:"free_shipping_threshold,omitempty"`
	ClearFreeShippingThreshold bool             `json:"clear_free_shipping_threshold,omitempty"`
	EstimatedDays              *int             `json:"estimated_days,omitempty" binding:"omitempty,min=0,max=90"`
	IsActive                   *bool            `json:"is_active,omitempty"`
}

// ShippingZoneListFilter represents filter parameters for listing zones
type ShippingZoneListFilter struct {
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
}

// ShippingQuoteRequest asks what delivery to an area would cost at a given
// cart subtotal
type ShippingQuoteRequest struct {
	Area     string          `form:"area" binding:"required,max=100"`
	Subtotal decimal.Decimal `form:"subtotal"`
}

// ShippingQuoteResponse is the priced outcome of resolving a delivery area.
// ExactMatch false means the fallback zone was used and the storefront should
// say so.
type ShippingQuoteResponse struct {
	Zone          *ShippingZoneResponse `json:"zone"`
	Area          string                `json:"area"`
	Cost          decimal.Decimal       `json:"cost"`
	IsFree        bool                  `json:"is_free"`
	ExactMatch    bool                  `json:"exact_match"`
	EstimatedDays int                   `json:"estimated_days"`
}

// TaxRuleResponse represents a tax rule in API responses
type TaxRuleResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	RuleType  string          `json:"rule_type"`
	Rate      decimal.Decimal `json:"rate"`
	Priority  int             `json:"priority"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"`
}

// CreateTaxRuleRequest represents a request to create a tax rule
type CreateTaxRuleRequest struct {
	Name     string          `json:"name" binding:"required,max=100"`
	RuleType string          `json:"rule_type" binding:"required,oneof=percentage fixed"`
	Rate     decimal.Decimal `json:"rate"`
	Priority int             `json:"priority"`
}

// UpdateTaxRuleRequest represents a partial update to a tax rule. The rule
// type is fixed at creation; retire the rule and add a new one to change it.
type UpdateTaxRuleRequest struct {
	Name     *string          `json:"name,omitempty" binding:"omitempty,max=100"`
	Rate     *decimal.Decimal `json:"rate,omitempty"`
	Priority *int             `json:"priority,omitempty"`
	IsActive *bool            `json:"is_active,omitempty"`
}

// TaxRuleListFilter represents filter parameters for listing tax rules
type TaxRuleListFilter struct {
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
}

// TaxQuoteRequest asks what taxes apply at a given base amount
type TaxQuoteRequest struct {
	Subtotal decimal.Decimal `form:"subtotal"`
}

// TaxQuoteResponse is the tax total for a base amount with the per-rule
// breakdown in application order
type TaxQuoteResponse struct {
	Base  decimal.Decimal   `json:"base"`
	Total decimal.Decimal   `json:"total"`
	Lines []pricing.TaxLine `json:"lines"`
}

// ToShippingZoneResponse converts a domain shipping zone to a response DTO
func ToShippingZoneResponse(z *pricing.ShippingZone) *ShippingZoneResponse {
	return &ShippingZoneResponse{
		ID:                    z.ID,
		Name:                  z.Name,
		Areas:                 z.Areas,
		ShippingCost:          z.ShippingCost,
		FreeShippingThreshold: z.FreeShippingThreshold,
		EstimatedDays:         z.EstimatedDays,
		IsActive:              z.IsActive,
		CreatedAt:             z.CreatedAt,
		UpdatedAt:             z.UpdatedAt,
		Version:               z.Version,
	}
}

// ToTaxRuleResponse converts a domain tax rule to a response DTO
func ToTaxRuleResponse(r *pricing.TaxRule) *TaxRuleResponse {
	return &TaxRuleResponse{
		ID:        r.ID,
		Name:      r.Name,
		RuleType:  r.RuleType.String(),
		Rate:      r.Rate,
		Priority:  r.Priority,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
}

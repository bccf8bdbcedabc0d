package coupon

import (
	"time"

	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponResponse represents a coupon in API responses
type CouponResponse struct {
	ID                    uuid.UUID        `json:"id"`
	Code                  string           `json:"code"`
	DiscountType          string           `json:"discount_type"`
	DiscountValue         decimal.Decimal  `json:"discount_value"`
	MinimumOrder          decimal.Decimal  `json:"minimum_order"`
	MaximumDiscount       *decimal.Decimal `json:"maximum_discount,omitempty"`
	UsageLimit            *int             `json:"usage_limit,omitempty"`
	UsageLimitPerUser     *int             `json:"usage_limit_per_user,omitempty"`
	TimesUsed             int              `json:"times_used"`
	IsExhausted           bool             `json:"is_exhausted"`
	ValidFrom             time.Time        `json:"valid_from"`
	ValidTo               time.Time        `json:"valid_to"`
	IsActive              bool             `json:"is_active"`
	FirstOrderOnly        bool             `json:"first_order_only"`
	ApplicableCategoryIDs []uuid.UUID      `json:"applicable_category_ids,omitempty"`
	ApplicableProductIDs  []uuid.UUID      `json:"applicable_product_ids,omitempty"`
	DeletedAt             *time.Time       `json:"deleted_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
	Version               int              `json:"version"`
}

// CreateCouponRequest represents a request to create a coupon
type CreateCouponRequest struct {
	Code                  string           `json:"code" binding:"required,max=50"`
	DiscountType          string           `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue         decimal.Decimal  `json:"discount_value" binding:"required"`
	MinimumOrder          *decimal.Decimal `json:"minimum_order,omitempty"`
	MaximumDiscount       *decimal.Decimal `json:"maximum_discount,omitempty"`
	UsageLimit            *int             `json:"usage_limit,omitempty" binding:"omitempty,min=1"`
	UsageLimitPerUser     *int             `json:"usage_limit_per_user,omitempty" binding:"omitempty,min=1"`
	ValidFrom             time.Time        `json:"valid_from" binding:"required"`
	ValidTo               time.Time        `json:"valid_to" binding:"required"`
	IsActive              *bool            `json:"is_active,omitempty"`
	FirstOrderOnly        bool             `json:"first_order_only,omitempty"`
	ApplicableCategoryIDs []uuid.UUID      `json:"applicable_category_ids,omitempty"`
	ApplicableProductIDs  []uuid.UUID      `json:"applicable_product_ids,omitempty"`
}

// CouponListFilter represents filter parameters for listing coupons
type CouponListFilter struct {
	IsActive       *bool  `form:"is_active"`
	Search         string `form:"search"`
	IncludeDeleted bool   `form:"include_deleted"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir"`
}

// ValidateCouponRequest represents a shopper's request to check a coupon
// against their current cart. Email lets a guest be checked against per-user
// and first-order limits before checkout asks for it.
type ValidateCouponRequest struct {
	Code  string `json:"code" binding:"required,max=50"`
	Email string `json:"email,omitempty" binding:"omitempty,email,max=255"`
}

// DiscountPreview shows what applying the coupon would do to the cart.
// Amounts are pre-shipping, pre-tax; checkout recomputes everything under
// locks.
type DiscountPreview struct {
	Base           decimal.Decimal `json:"base"`
	Amount         decimal.Decimal `json:"amount"`
	SubtotalBefore decimal.Decimal `json:"subtotal_before"`
	SubtotalAfter  decimal.Decimal `json:"subtotal_after"`
}

// ValidateCouponResponse represents the outcome of a validation request.
// Reasons carries every failing check at once; Discount is only present when
// the coupon is applicable.
type ValidateCouponResponse struct {
	Valid    bool             `json:"valid"`
	Reasons  []string         `json:"reasons,omitempty"`
	Coupon   *CouponResponse  `json:"coupon,omitempty"`
	Discount *DiscountPreview `json:"discount,omitempty"`
}

// UsageRecordResponse represents a coupon redemption in API responses
type UsageRecordResponse struct {
	ID              uuid.UUID       `json:"id"`
	CouponID        uuid.UUID       `json:"coupon_id"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"`
	GuestIdentifier string          `json:"guest_identifier,omitempty"`
	OrderID         *uuid.UUID      `json:"order_id,omitempty"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	UsedAt          time.Time       `json:"used_at"`
}

// ToCouponResponse converts a domain coupon to a response DTO
func ToCouponResponse(c *coupon.Coupon) *CouponResponse {
	return &CouponResponse{
		ID:                    c.ID,
		Code:                  c.Code,
		DiscountType:          c.DiscountType.String(),
		DiscountValue:         c.DiscountValue,
		MinimumOrder:          c.MinimumOrder,
		MaximumDiscount:       c.MaximumDiscount,
		UsageLimit:            c.UsageLimit,
		UsageLimitPerUser:     c.UsageLimitPerUser,
		TimesUsed:             c.TimesUsed,
		IsExhausted:           c.IsExhausted(),
		ValidFrom:             c.ValidFrom,
		ValidTo:               c.ValidTo,
		IsActive:              c.IsActive,
		FirstOrderOnly:        c.FirstOrderOnly,
		ApplicableCategoryIDs: c.ApplicableCategoryIDs,
		ApplicableProductIDs:  c.ApplicableProductIDs,
		DeletedAt:             c.DeletedAt,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
		Version:               c.Version,
	}
}

// ToUsageRecordResponse converts a domain usage record to a response DTO
func ToUsageRecordResponse(r *coupon.UsageRecord) *UsageRecordResponse {
	return &UsageRecordResponse{
		ID:              r.ID,
		CouponID:        r.CouponID,
		UserID:          r.UserID,
		GuestIdentifier: r.GuestIdentifier,
		OrderID:         r.OrderID,
		DiscountAmount:  r.DiscountAmount,
		UsedAt:          r.UsedAt,
	}
}

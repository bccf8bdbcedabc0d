package coupon

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

// DiscountType is how a coupon's value is interpreted
type DiscountType string

const (
	// DiscountTypePercentage takes discount_value percent off the base
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed takes a flat discount_value off the base
	DiscountTypeFixed DiscountType = "fixed"
)

// String returns the string representation of DiscountType
func (t DiscountType) String() string {
	return string(t)
}

// IsValid returns true if the discount type is valid
func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

// UUIDList stores a set of ids as a JSON array in a single text column.
// Portable across postgres and the sqlite test driver.
type UUIDList []uuid.UUID

// Value implements driver.Valuer
func (l UUIDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *UUIDList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into UUIDList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Contains returns true if the list holds the given id
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, item := range l {
		if item == id {
			return true
		}
	}
	return false
}

// NormalizeCode canonicalizes a coupon code for the case-insensitive
// uniqueness rule: trimmed and upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Coupon is a discount rule applied to a cart at checkout. times_used is the
// only mutable counter and is incremented through the repository's atomic
// conditional update, never by re-saving a stale aggregate.
type Coupon struct {
	shared.BaseAggregateRoot
	Code                  string           `gorm:"type:varchar(50);not null;uniqueIndex:idx_coupons_code"`
	DiscountType          DiscountType     `gorm:"type:varchar(20);not null"`
	DiscountValue         decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	MinimumOrder          decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	MaximumDiscount       *decimal.Decimal `gorm:"type:decimal(12,2)"` // cap, percentage coupons only
	UsageLimit            *int             `gorm:""`
	UsageLimitPerUser     *int             `gorm:""`
	TimesUsed             int              `gorm:"not null;default:0"`
	ValidFrom             time.Time        `gorm:"type:timestamptz;not null"`
	ValidTo               time.Time        `gorm:"type:timestamptz;not null"`
	IsActive              bool             `gorm:"not null;default:true"`
	FirstOrderOnly        bool             `gorm:"not null;default:false"`
	ApplicableCategoryIDs UUIDList         `gorm:"type:text"`
	ApplicableProductIDs  UUIDList         `gorm:"type:text"`
	DeletedAt             *time.Time       `gorm:"type:timestamptz;index"`
}

// TableName returns the table name for GORM
func (Coupon) TableName() string {
	return "coupons"
}

// NewCoupon creates a coupon with a normalized code
func NewCoupon(code string, discountType DiscountType, discountValue decimal.Decimal, validFrom, validTo time.Time) (*Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, shared.NewValidationError("Coupon code cannot be empty")
	}
	if !discountType.IsValid() {
		return nil, shared.NewValidationError("Invalid discount type")
	}
	if discountValue.IsNegative() || discountValue.IsZero() {
		return nil, shared.NewValidationError("Discount value must be positive")
	}
	if discountType == DiscountTypePercentage && discountValue.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewValidationError("Percentage discount cannot exceed 100")
	}
	if !validTo.After(validFrom) {
		return nil, shared.NewValidationError("Validity window must end after it starts")
	}

	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              normalized,
		DiscountType:      discountType,
		DiscountValue:     discountValue,
		MinimumOrder:      decimal.Zero,
		ValidFrom:         validFrom,
		ValidTo:           validTo,
		IsActive:          true,
	}, nil
}

// IsDeleted returns true for soft-deleted coupons
func (c *Coupon) IsDeleted() bool {
	return c.DeletedAt != nil
}

// SoftDelete marks the coupon deleted without destroying usage history
func (c *Coupon) SoftDelete(now time.Time) {
	c.DeletedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()
}

// Activate enables the coupon
func (c *Coupon) Activate() {
	c.IsActive = true
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Deactivate disables the coupon
func (c *Coupon) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// HasRestrictions returns true when the coupon is limited to certain
// products or categories
func (c *Coupon) HasRestrictions() bool {
	return len(c.ApplicableCategoryIDs) > 0 || len(c.ApplicableProductIDs) > 0
}

// IsEligibleItem returns true if a cart line's product/category passes the
// coupon's restrictions. Unrestricted coupons accept everything.
func (c *Coupon) IsEligibleItem(productID, categoryID uuid.UUID) bool {
	if !c.HasRestrictions() {
		return true
	}
	if c.ApplicableProductIDs.Contains(productID) {
		return true
	}
	return c.ApplicableCategoryIDs.Contains(categoryID)
}

// IsExhausted returns true when the global usage limit has been reached.
// Advisory: the binding check is the conditional increment at usage time.
func (c *Coupon) IsExhausted() bool {
	return c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit
}

// ValidationInput carries everything Validate needs that lives outside the
// coupon row itself. Eligible figures are computed by the caller against the
// catalog; usage counts come from the usage record repository.
type ValidationInput struct {
	Now              time.Time
	Subtotal         decimal.Decimal
	EligibleSubtotal decimal.Decimal
	HasEligibleLines bool
	TimesUsedByActor int
	PriorOrderCount  int
}

// Validate runs every business check and returns all failures together so
// the shopper sees each reason at once rather than fixing them one at a time.
// An empty slice means the coupon may be applied.
func (c *Coupon) Validate(in ValidationInput) []error {
	var reasons []error

	if !c.IsActive {
		reasons = append(reasons, shared.NewCouponError("Coupon is not active"))
	}
	if in.Now.Before(c.ValidFrom) {
		reasons = append(reasons, shared.NewCouponError("Coupon is not valid yet"))
	}
	if in.Now.After(c.ValidTo) {
		reasons = append(reasons, shared.NewCouponError("Coupon has expired"))
	}
	if c.IsExhausted() {
		reasons = append(reasons, shared.NewCouponError("Coupon usage limit has been reached"))
	}
	if c.UsageLimitPerUser != nil && in.TimesUsedByActor >= *c.UsageLimitPerUser {
		reasons = append(reasons, shared.NewCouponError("You have reached the usage limit for this coupon"))
	}
	if in.Subtotal.LessThan(c.MinimumOrder) {
		reasons = append(reasons, shared.NewCouponError(
			fmt.Sprintf("Minimum order amount of %s required", c.MinimumOrder.StringFixed(2))))
	}
	if c.HasRestrictions() && !in.HasEligibleLines {
		reasons = append(reasons, shared.NewCouponError("Coupon does not apply to any item in the cart"))
	}
	if c.FirstOrderOnly && in.PriorOrderCount > 0 {
		reasons = append(reasons, shared.NewCouponError("Coupon is only valid on a first order"))
	}

	return reasons
}

// DiscountBase picks the amount the discount is computed against: the
// eligible lines only when restrictions apply, the full subtotal otherwise.
func (c *Coupon) DiscountBase(subtotal, eligibleSubtotal decimal.Decimal) decimal.Decimal {
	if c.HasRestrictions() {
		return eligibleSubtotal
	}
	return subtotal
}

// CalculateDiscount computes the discount against the given base, applying
// the percentage cap and clamping so the discount never exceeds the base.
func (c *Coupon) CalculateDiscount(base decimal.Decimal) decimal.Decimal {
	if base.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountTypePercentage:
		discount = base.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if c.MaximumDiscount != nil && discount.GreaterThan(*c.MaximumDiscount) {
			discount = *c.MaximumDiscount
		}
	case DiscountTypeFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(base) {
		discount = base
	}
	return discount
}

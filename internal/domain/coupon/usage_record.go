package coupon

import (
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageRecord is the append-only trail of coupon redemptions. One row is
// written per successful checkout that applied the coupon, inside the same
// transaction as the conditional counter increment, so the per-actor counts
// derived from these rows stay consistent with times_used.
type UsageRecord struct {
	shared.BaseEntity
	CouponID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_coupon_usage_coupon"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index:idx_coupon_usage_user"`
	GuestIdentifier string          `gorm:"type:varchar(255);index:idx_coupon_usage_guest"`
	OrderID         *uuid.UUID      `gorm:"type:uuid;index"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UsedAt          time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (UsageRecord) TableName() string {
	return "coupon_usage_records"
}

// NewUsageRecord creates a usage record for a registered user redemption
func NewUsageRecord(couponID, userID uuid.UUID, discountAmount decimal.Decimal, usedAt time.Time) *UsageRecord {
	return &UsageRecord{
		BaseEntity:     shared.NewBaseEntity(),
		CouponID:       couponID,
		UserID:         &userID,
		DiscountAmount: discountAmount,
		UsedAt:         usedAt,
	}
}

// NewGuestUsageRecord creates a usage record keyed by a guest identifier
// (normalized email or session key) instead of a user id
func NewGuestUsageRecord(couponID uuid.UUID, guestIdentifier string, discountAmount decimal.Decimal, usedAt time.Time) (*UsageRecord, error) {
	if guestIdentifier == "" {
		return nil, shared.NewValidationError("Guest identifier cannot be empty")
	}
	return &UsageRecord{
		BaseEntity:      shared.NewBaseEntity(),
		CouponID:        couponID,
		GuestIdentifier: guestIdentifier,
		DiscountAmount:  discountAmount,
		UsedAt:          usedAt,
	}, nil
}

// AttachOrder links the record to the order that consumed the coupon
func (r *UsageRecord) AttachOrder(orderID uuid.UUID) {
	r.OrderID = &orderID
	r.Touch()
}

// Actor describes who is redeeming a coupon. Exactly one of UserID or
// GuestIdentifier is set; per-user limits are counted against whichever
// identity the actor presents.
type Actor struct {
	UserID          *uuid.UUID
	GuestIdentifier string
}

// UserActor builds an actor for an authenticated user
func UserActor(userID uuid.UUID) Actor {
	return Actor{UserID: &userID}
}

// GuestActor builds an actor for a guest shopper
func GuestActor(identifier string) Actor {
	return Actor{GuestIdentifier: identifier}
}

// IsGuest returns true when the actor has no user id
func (a Actor) IsGuest() bool {
	return a.UserID == nil
}

package coupon

import (
	"context"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CouponRepository defines persistence for coupons. FindByCode operates on
// the normalized code; soft-deleted rows are excluded unless includeDeleted
// is set (the code lookup used to enforce uniqueness needs them, a shopper
// lookup does not).
type CouponRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	FindByCode(ctx context.Context, code string, includeDeleted bool) (*Coupon, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Coupon, error)
	Save(ctx context.Context, coupon *Coupon) error
	SaveWithLock(ctx context.Context, coupon *Coupon) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// IncrementUsage atomically bumps times_used, guarded by the usage
	// limit in the same statement. Returns false without error when the
	// limit was already reached, which callers must treat as a losing
	// race rather than a failure of the store.
	IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error)
}

// UsageRecordRepository defines persistence for the redemption trail
type UsageRecordRepository interface {
	Create(ctx context.Context, record *UsageRecord) error
	FindByCoupon(ctx context.Context, couponID uuid.UUID, filter shared.Filter) ([]UsageRecord, error)

	// CountByActor returns how many times the actor has redeemed the
	// coupon, matching on user id or guest identifier.
	CountByActor(ctx context.Context, couponID uuid.UUID, actor Actor) (int64, error)
}

package persistence

import (
	"context"

	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUsageRecordRepository implements UsageRecordRepository using GORM.
// The table is append-only: rows are created once and never updated.
type GormUsageRecordRepository struct {
	db *gorm.DB
}

// NewGormUsageRecordRepository creates a new GormUsageRecordRepository
func NewGormUsageRecordRepository(db *gorm.DB) *GormUsageRecordRepository {
	return &GormUsageRecordRepository{db: db}
}

// Create creates a usage record
func (r *GormUsageRecordRepository) Create(ctx context.Context, record *coupon.UsageRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByCoupon lists redemptions of a coupon
func (r *GormUsageRecordRepository) FindByCoupon(ctx context.Context, couponID uuid.UUID, filter shared.Filter) ([]coupon.UsageRecord, error) {
	var records []coupon.UsageRecord
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&coupon.UsageRecord{}).Where("coupon_id = ?", couponID),
		filter,
	)

	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByActor returns how many times the actor has redeemed the coupon,
// matching on user id or guest identifier
func (r *GormUsageRecordRepository) CountByActor(ctx context.Context, couponID uuid.UUID, actor coupon.Actor) (int64, error) {
	query := r.db.WithContext(ctx).Model(&coupon.UsageRecord{}).Where("coupon_id = ?", couponID)

	if actor.UserID != nil {
		query = query.Where("user_id = ?", *actor.UserID)
	} else {
		if actor.GuestIdentifier == "" {
			return 0, nil
		}
		query = query.Where("guest_identifier = ?", actor.GuestIdentifier)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormUsageRecordRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, UsageRecordSortFields, "used_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("used_at DESC")
	}

	return query
}

// Ensure GormUsageRecordRepository implements UsageRecordRepository
var _ coupon.UsageRecordRepository = (*GormUsageRecordRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCouponRepository implements CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByID finds a coupon by its ID, soft-deleted or not
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByCode finds a coupon by its normalized code
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string, includeDeleted bool) (*coupon.Coupon, error) {
	query := r.db.WithContext(ctx).Where("code = ?", coupon.NormalizeCode(code))
	if !includeDeleted {
		query = query.Where("deleted_at IS NULL")
	}

	var c coupon.Coupon
	if err := query.First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindAll lists coupons matching the filter
func (r *GormCouponRepository) FindAll(ctx context.Context, filter shared.Filter) ([]coupon.Coupon, error) {
	var coupons []coupon.Coupon
	query := r.applyFilter(r.db.WithContext(ctx).Model(&coupon.Coupon{}), filter)

	if err := query.Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// Save creates or updates a coupon
func (r *GormCouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// SaveWithLock saves with optimistic locking (checks version). times_used is
// deliberately absent from the column list: the counter only moves through
// IncrementUsage, so an admin edit never overwrites concurrent redemptions.
func (r *GormCouponRepository) SaveWithLock(ctx context.Context, c *coupon.Coupon) error {
	result := r.db.WithContext(ctx).
		Model(c).
		Where("id = ? AND version = ?", c.ID, c.Version-1).
		Updates(map[string]interface{}{
			"code":                    c.Code,
			"discount_type":           c.DiscountType,
			"discount_value":          c.DiscountValue,
			"minimum_order":           c.MinimumOrder,
			"maximum_discount":        c.MaximumDiscount,
			"usage_limit":             c.UsageLimit,
			"usage_limit_per_user":    c.UsageLimitPerUser,
			"valid_from":              c.ValidFrom,
			"valid_to":                c.ValidTo,
			"is_active":               c.IsActive,
			"first_order_only":        c.FirstOrderOnly,
			"applicable_category_ids": c.ApplicableCategoryIDs,
			"applicable_product_ids":  c.ApplicableProductIDs,
			"deleted_at":              c.DeletedAt,
			"version":                 c.Version,
			"updated_at":              c.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Coupon was modified by another transaction")
	}
	return nil
}

// Count counts coupons matching the filter
func (r *GormCouponRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&coupon.Coupon{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementUsage atomically bumps times_used, guarded by usage_limit in the
// same statement so two racing checkouts can never both take the last slot
func (r *GormCouponRepository) IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&coupon.Coupon{}).
		Where("id = ? AND (usage_limit IS NULL OR times_used < usage_limit)", couponID).
		UpdateColumn("times_used", gorm.Expr("times_used + 1"))

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormCouponRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, CouponSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormCouponRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if _, ok := filter.Filters["include_deleted"]; !ok {
		query = query.Where("deleted_at IS NULL")
	}

	for key, value := range filter.Filters {
		switch key {
		case "is_active":
			query = query.Where("is_active = ?", value)
		}
	}

	if filter.Search != "" {
		escaped := escapeLikePattern(filter.Search)
		query = query.Where("code ILIKE ?", "%"+escaped+"%")
	}

	return query
}

// escapeLikePattern escapes special characters in LIKE patterns
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// Ensure GormCouponRepository implements CouponRepository
var _ coupon.CouponRepository = (*GormCouponRepository)(nil)

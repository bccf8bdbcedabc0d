package persistence

import (
	"context"
	"errors"

	"github.com/ecom/backend/internal/domain/pricing"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormShippingZoneRepository implements ShippingZoneRepository using GORM
type GormShippingZoneRepository struct {
	db *gorm.DB
}

// NewGormShippingZoneRepository creates a new GormShippingZoneRepository
func NewGormShippingZoneRepository(db *gorm.DB) *GormShippingZoneRepository {
	return &GormShippingZoneRepository{db: db}
}

// FindByID finds a shipping zone by its ID
func (r *GormShippingZoneRepository) FindByID(ctx context.Context, id uuid.UUID) (*pricing.ShippingZone, error) {
	var zone pricing.ShippingZone
	if err := r.db.WithContext(ctx).First(&zone, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &zone, nil
}

// FindAll lists shipping zones
func (r *GormShippingZoneRepository) FindAll(ctx context.Context, filter shared.Filter) ([]pricing.ShippingZone, error) {
	var zones []pricing.ShippingZone
	query := r.applyFilter(r.db.WithContext(ctx).Model(&pricing.ShippingZone{}), filter)

	if err := query.Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

// FindActive lists active zones oldest-first, so the fallback zone used for
// unmatched areas stays the first zone ever configured
func (r *GormShippingZoneRepository) FindActive(ctx context.Context) ([]pricing.ShippingZone, error) {
	var zones []pricing.ShippingZone
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

// Save creates or updates a shipping zone
func (r *GormShippingZoneRepository) Save(ctx context.Context, zone *pricing.ShippingZone) error {
	return r.db.WithContext(ctx).Save(zone).Error
}

// Delete deletes a shipping zone
func (r *GormShippingZoneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&pricing.ShippingZone{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts shipping zones matching the filter
func (r *GormShippingZoneRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&pricing.ShippingZone{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormShippingZoneRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, ShippingZoneSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormShippingZoneRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "is_active":
			query = query.Where("is_active = ?", value)
		}
	}

	if filter.Search != "" {
		escaped := escapeLikePattern(filter.Search)
		query = query.Where("name ILIKE ?", "%"+escaped+"%")
	}

	return query
}

// Ensure GormShippingZoneRepository implements ShippingZoneRepository
var _ pricing.ShippingZoneRepository = (*GormShippingZoneRepository)(nil)

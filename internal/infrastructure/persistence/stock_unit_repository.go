package persistence

import (
	"context"
	"errors"

	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockUnitRepository implements StockUnitRepository using GORM
type GormStockUnitRepository struct {
	db *gorm.DB
}

// NewGormStockUnitRepository creates a new GormStockUnitRepository
func NewGormStockUnitRepository(db *gorm.DB) *GormStockUnitRepository {
	return &GormStockUnitRepository{db: db}
}

// FindByID finds a stock unit by its ID
func (r *GormStockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockUnit, error) {
	var unit inventory.StockUnit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindByVariantID finds the stock unit for a variant
func (r *GormStockUnitRepository) FindByVariantID(ctx context.Context, variantID uuid.UUID) (*inventory.StockUnit, error) {
	var unit inventory.StockUnit
	if err := r.db.WithContext(ctx).First(&unit, "variant_id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindByVariantIDForUpdate finds the stock unit for a variant with a
// SELECT ... FOR UPDATE row lock. Callers must already be inside a
// transaction, otherwise the lock is released immediately.
func (r *GormStockUnitRepository) FindByVariantIDForUpdate(ctx context.Context, variantID uuid.UUID) (*inventory.StockUnit, error) {
	var unit inventory.StockUnit
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&unit, "variant_id = ?", variantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindByVariantIDs finds stock units for a set of variants
func (r *GormStockUnitRepository) FindByVariantIDs(ctx context.Context, variantIDs []uuid.UUID) ([]inventory.StockUnit, error) {
	if len(variantIDs) == 0 {
		return []inventory.StockUnit{}, nil
	}

	var units []inventory.StockUnit
	if err := r.db.WithContext(ctx).
		Where("variant_id IN ?", variantIDs).
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindAll lists stock units
func (r *GormStockUnitRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.StockUnit, error) {
	var units []inventory.StockUnit
	query := r.applyFilter(r.db.WithContext(ctx).Model(&inventory.StockUnit{}), filter)

	if err := query.Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindLowStock lists tracked units at or below their low-stock threshold
func (r *GormStockUnitRepository) FindLowStock(ctx context.Context, filter shared.Filter) ([]inventory.StockUnit, error) {
	var units []inventory.StockUnit
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&inventory.StockUnit{}).
			Where("tracks_inventory = ? AND low_stock_threshold > 0 AND quantity_on_hand <= low_stock_threshold", true),
		filter,
	)

	if err := query.Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Save creates or updates a stock unit
func (r *GormStockUnitRepository) Save(ctx context.Context, unit *inventory.StockUnit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

// Delete deletes a stock unit
func (r *GormStockUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&inventory.StockUnit{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts stock units matching the filter
func (r *GormStockUnitRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&inventory.StockUnit{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormStockUnitRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, StockUnitSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormStockUnitRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "variant_id":
			query = query.Where("variant_id = ?", value)
		case "tracked":
			query = query.Where("tracks_inventory = ?", value)
		case "out_of_stock":
			if value == true {
				query = query.Where("tracks_inventory = ? AND quantity_on_hand <= 0", true)
			}
		}
	}

	return query
}

// Ensure GormStockUnitRepository implements StockUnitRepository
var _ inventory.StockUnitRepository = (*GormStockUnitRepository)(nil)

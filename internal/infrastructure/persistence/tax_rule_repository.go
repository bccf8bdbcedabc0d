package persistence

import (
	"context"
	"errors"

	"github.com/ecom/backend/internal/domain/pricing"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTaxRuleRepository implements TaxRuleRepository using GORM
type GormTaxRuleRepository struct {
	db *gorm.DB
}

// NewGormTaxRuleRepository creates a new GormTaxRuleRepository
func NewGormTaxRuleRepository(db *gorm.DB) *GormTaxRuleRepository {
	return &GormTaxRuleRepository{db: db}
}

// FindByID finds a tax rule by its ID
func (r *GormTaxRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*pricing.TaxRule, error) {
	var rule pricing.TaxRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindAll lists tax rules
func (r *GormTaxRuleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]pricing.TaxRule, error) {
	var rules []pricing.TaxRule
	query := r.applyFilter(r.db.WithContext(ctx).Model(&pricing.TaxRule{}), filter)

	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindActive lists active rules ordered by priority, then age, matching the
// order they are applied in
func (r *GormTaxRuleRepository) FindActive(ctx context.Context) ([]pricing.TaxRule, error) {
	var rules []pricing.TaxRule
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// Save creates or updates a tax rule
func (r *GormTaxRuleRepository) Save(ctx context.Context, rule *pricing.TaxRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete deletes a tax rule
func (r *GormTaxRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&pricing.TaxRule{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts tax rules matching the filter
func (r *GormTaxRuleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&pricing.TaxRule{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormTaxRuleRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, TaxRuleSortFields, "priority")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("priority ASC, created_at ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormTaxRuleRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "is_active":
			query = query.Where("is_active = ?", value)
		case "rule_type":
			query = query.Where("rule_type = ?", value)
		}
	}

	if filter.Search != "" {
		escaped := escapeLikePattern(filter.Search)
		query = query.Where("name ILIKE ?", "%"+escaped+"%")
	}

	return query
}

// Ensure GormTaxRuleRepository implements TaxRuleRepository
var _ pricing.TaxRuleRepository = (*GormTaxRuleRepository)(nil)

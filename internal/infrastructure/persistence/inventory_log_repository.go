package persistence

import (
	"context"
	"errors"

	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryLogRepository implements InventoryLogRepository using GORM.
// The table is append-only: entries are created once and never updated or
// deleted, so the repository exposes no mutation beyond Create.
type GormInventoryLogRepository struct {
	db *gorm.DB
}

// NewGormInventoryLogRepository creates a new GormInventoryLogRepository
func NewGormInventoryLogRepository(db *gorm.DB) *GormInventoryLogRepository {
	return &GormInventoryLogRepository{db: db}
}

// FindByID finds a log entry by its ID
func (r *GormInventoryLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryLogEntry, error) {
	var entry inventory.InventoryLogEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByVariant lists entries for a variant, newest first
func (r *GormInventoryLogRepository) FindByVariant(ctx context.Context, variantID uuid.UUID, filter inventory.LedgerFilter) ([]inventory.InventoryLogEntry, error) {
	var entries []inventory.InventoryLogEntry
	query := r.applyLedgerFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryLogEntry{}).
			Where("variant_id = ?", variantID),
		filter,
		true,
	)

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByReference lists entries created for a given order/document reference
func (r *GormInventoryLogRepository) FindByReference(ctx context.Context, reference string) ([]inventory.InventoryLogEntry, error) {
	var entries []inventory.InventoryLogEntry
	if err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Create appends a new entry
func (r *GormInventoryLogRepository) Create(ctx context.Context, entry *inventory.InventoryLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CountByVariant counts entries for a variant matching the filter
func (r *GormInventoryLogRepository) CountByVariant(ctx context.Context, variantID uuid.UUID, filter inventory.LedgerFilter) (int64, error) {
	var count int64
	query := r.applyLedgerFilter(
		r.db.WithContext(ctx).Model(&inventory.InventoryLogEntry{}).
			Where("variant_id = ?", variantID),
		filter,
		false,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyLedgerFilter applies ledger-specific filters, and pagination plus
// ordering when paginate is set
func (r *GormInventoryLogRepository) applyLedgerFilter(query *gorm.DB, filter inventory.LedgerFilter, paginate bool) *gorm.DB {
	if filter.ChangeType != nil {
		query = query.Where("change_type = ?", *filter.ChangeType)
	}
	if filter.StartDate != nil {
		query = query.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("created_at <= ?", *filter.EndDate)
	}

	if !paginate {
		return query
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, InventoryLogSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// Ensure GormInventoryLogRepository implements InventoryLogRepository
var _ inventory.InventoryLogRepository = (*GormInventoryLogRepository)(nil)

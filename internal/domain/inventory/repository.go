package inventory

import (
	"context"
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StockUnitRepository defines the interface for stock unit persistence
type StockUnitRepository interface {
	// FindByID finds a stock unit by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockUnit, error)

	// FindByVariantID finds the stock unit for a variant
	FindByVariantID(ctx context.Context, variantID uuid.UUID) (*StockUnit, error)

	// FindByVariantIDForUpdate finds the stock unit for a variant while
	// acquiring an exclusive row lock. Only meaningful inside a transaction;
	// the lock is held until that transaction commits or rolls back.
	FindByVariantIDForUpdate(ctx context.Context, variantID uuid.UUID) (*StockUnit, error)

	// FindByVariantIDs finds stock units for a set of variants
	FindByVariantIDs(ctx context.Context, variantIDs []uuid.UUID) ([]StockUnit, error)

	// FindAll lists stock units
	FindAll(ctx context.Context, filter shared.Filter) ([]StockUnit, error)

	// FindLowStock lists tracked units at or below their low-stock threshold
	FindLowStock(ctx context.Context, filter shared.Filter) ([]StockUnit, error)

	// Save creates or updates a stock unit
	Save(ctx context.Context, unit *StockUnit) error

	// Delete deletes a stock unit
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts stock units matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

// InventoryLogRepository defines the interface for the append-only audit trail.
// Entries are created exactly once per adjustment and never updated or deleted.
type InventoryLogRepository interface {
	// FindByID finds a log entry by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryLogEntry, error)

	// FindByVariant lists entries for a variant, newest first
	FindByVariant(ctx context.Context, variantID uuid.UUID, filter LedgerFilter) ([]InventoryLogEntry, error)

	// FindByReference lists entries created for a given order/document reference
	FindByReference(ctx context.Context, reference string) ([]InventoryLogEntry, error)

	// Create appends a new entry
	Create(ctx context.Context, entry *InventoryLogEntry) error

	// CountByVariant counts entries for a variant matching the filter
	CountByVariant(ctx context.Context, variantID uuid.UUID, filter LedgerFilter) (int64, error)
}

// LedgerFilter extends shared.Filter with ledger-specific filters
type LedgerFilter struct {
	shared.Filter
	ChangeType *ChangeType
	StartDate  *time.Time
	EndDate    *time.Time
}

package inventory

import (
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ChangeType classifies why a stock quantity moved
type ChangeType string

const (
	// ChangeTypeRestocked is stock arriving from a purchase or manual restock
	ChangeTypeRestocked ChangeType = "restocked"
	// ChangeTypeReserved is stock held back for a pending order
	ChangeTypeReserved ChangeType = "reserved"
	// ChangeTypeReleased is previously held stock returned to the pool (order cancelled)
	ChangeTypeReleased ChangeType = "released"
	// ChangeTypeSold is stock deducted at checkout
	ChangeTypeSold ChangeType = "sold"
	// ChangeTypeReturn is stock restored by an approved customer return
	ChangeTypeReturn ChangeType = "return"
)

// String returns the string representation of ChangeType
func (t ChangeType) String() string {
	return string(t)
}

// IsValid returns true if the change type is one of the closed set
func (t ChangeType) IsValid() bool {
	switch t {
	case ChangeTypeRestocked,
		ChangeTypeReserved,
		ChangeTypeReleased,
		ChangeTypeSold,
		ChangeTypeReturn:
		return true
	}
	return false
}

// InventoryLogEntry is an immutable record of a single stock adjustment.
// One entry is written per Adjust call, inside the same transaction as the
// quantity mutation. Corrections are made with new entries, never updates.
type InventoryLogEntry struct {
	shared.BaseEntity
	StockUnitID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_inventory_log_unit"`
	VariantID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_inventory_log_variant"`
	ChangeType     ChangeType `gorm:"type:varchar(20);not null;index:idx_inventory_log_type"`
	QuantityDelta  int        `gorm:"not null"`
	QuantityBefore int        `gorm:"not null"`
	QuantityAfter  int        `gorm:"not null"`
	Reference      string     `gorm:"type:varchar(100);index:idx_inventory_log_reference"`
	Actor          string     `gorm:"type:varchar(100)"` // empty means system-initiated
	Notes          string     `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (InventoryLogEntry) TableName() string {
	return "inventory_log_entries"
}

// NewInventoryLogEntry creates a log entry for an adjustment that already happened
func NewInventoryLogEntry(unit *StockUnit, changeType ChangeType, delta, before, after int, reference string) (*InventoryLogEntry, error) {
	if unit == nil || unit.ID == uuid.Nil {
		return nil, shared.NewValidationError("Stock unit is required")
	}
	if !changeType.IsValid() {
		return nil, shared.NewValidationError("Invalid change type")
	}
	if after != before+delta {
		return nil, shared.NewValidationError("Quantity delta does not reconcile with before/after")
	}

	return &InventoryLogEntry{
		BaseEntity:     shared.NewBaseEntity(),
		StockUnitID:    unit.ID,
		VariantID:      unit.VariantID,
		ChangeType:     changeType,
		QuantityDelta:  delta,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reference:      reference,
	}, nil
}

// WithActor records who performed the adjustment
func (e *InventoryLogEntry) WithActor(actor string) *InventoryLogEntry {
	e.Actor = actor
	return e
}

// WithNotes attaches a free-text note to the entry
func (e *InventoryLogEntry) WithNotes(notes string) *InventoryLogEntry {
	e.Notes = notes
	return e
}

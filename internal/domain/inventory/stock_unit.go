package inventory

import (
	"fmt"
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StockUnit holds the on-hand quantity for a single purchasable variant.
// It is the aggregate root for all inventory mutations: the quantity is only
// ever changed through Adjust, which runs under a row-level lock held by the
// surrounding transaction.
type StockUnit struct {
	shared.BaseAggregateRoot
	VariantID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_units_variant"`
	QuantityOnHand    int       `gorm:"not null;default:0"`
	LowStockThreshold int       `gorm:"not null;default:0"`
	TracksInventory   bool      `gorm:"not null;default:true"`
	AllowsBackorder   bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (StockUnit) TableName() string {
	return "stock_units"
}

// NewStockUnit creates a stock unit for a variant
func NewStockUnit(variantID uuid.UUID, quantity, lowStockThreshold int, tracksInventory, allowsBackorder bool) (*StockUnit, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewValidationError("Variant ID cannot be empty")
	}
	if quantity < 0 && !allowsBackorder {
		return nil, shared.NewValidationError("Initial quantity cannot be negative")
	}
	if lowStockThreshold < 0 {
		return nil, shared.NewValidationError("Low stock threshold cannot be negative")
	}

	return &StockUnit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VariantID:         variantID,
		QuantityOnHand:    quantity,
		LowStockThreshold: lowStockThreshold,
		TracksInventory:   tracksInventory,
		AllowsBackorder:   allowsBackorder,
	}, nil
}

// Adjust applies a signed delta to the on-hand quantity and returns the
// before/after pair. The caller must already hold the row lock for this unit.
//
// Untracked units reject adjustments unless bypassTracking is set, which is
// reserved for restocking a unit that has not been switched to tracked yet.
// The quantity never goes negative unless backorders are allowed.
func (u *StockUnit) Adjust(delta int, changeType ChangeType, bypassTracking bool) (before, after int, err error) {
	if !changeType.IsValid() {
		return 0, 0, shared.NewValidationError(fmt.Sprintf("Invalid change type %q", changeType))
	}
	if !u.TracksInventory && !bypassTracking {
		return 0, 0, shared.NewInvalidOperationError("Inventory is not tracked for this variant")
	}

	before = u.QuantityOnHand
	after = before + delta
	if after < 0 && !u.AllowsBackorder {
		return before, before, shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient stock: have %d, requested %d", before, -delta))
	}

	u.QuantityOnHand = after
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	u.AddDomainEvent(NewStockAdjustedEvent(u, changeType, delta, before, after))

	// Only alert on the downward crossing so repeated sales below the
	// threshold don't fire an event per unit sold.
	if u.TracksInventory && u.LowStockThreshold > 0 && after <= u.LowStockThreshold && before > u.LowStockThreshold {
		u.AddDomainEvent(NewStockBelowThresholdEvent(u))
	}

	return before, after, nil
}

// CanSatisfy reports whether a demand for the given quantity could be met.
// Advisory only: the answer may be stale by the time stock is actually
// deducted, so the authoritative check is the one inside Adjust's lock.
func (u *StockUnit) CanSatisfy(quantity int) bool {
	if !u.TracksInventory {
		return true
	}
	if u.AllowsBackorder {
		return true
	}
	return u.QuantityOnHand >= quantity
}

// IsLowStock returns true if the tracked quantity has reached the threshold
func (u *StockUnit) IsLowStock() bool {
	return u.TracksInventory && u.LowStockThreshold > 0 && u.QuantityOnHand <= u.LowStockThreshold
}

// SetLowStockThreshold updates the alert threshold
func (u *StockUnit) SetLowStockThreshold(threshold int) error {
	if threshold < 0 {
		return shared.NewValidationError("Low stock threshold cannot be negative")
	}
	u.LowStockThreshold = threshold
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// SetTracking toggles inventory tracking for this unit
func (u *StockUnit) SetTracking(tracks bool) {
	u.TracksInventory = tracks
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// SetBackorder toggles whether sales may push the quantity negative
func (u *StockUnit) SetBackorder(allows bool) {
	u.AllowsBackorder = allows
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

package inventory

import (
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeStockUnit = "StockUnit"

// Event type constants
const (
	EventTypeStockAdjusted       = "StockAdjusted"
	EventTypeStockBelowThreshold = "StockBelowThreshold"
)

// StockAdjustedEvent is raised whenever a stock unit's quantity changes
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	StockUnitID    uuid.UUID  `json:"stock_unit_id"`
	VariantID      uuid.UUID  `json:"variant_id"`
	ChangeType     ChangeType `json:"change_type"`
	QuantityDelta  int        `json:"quantity_delta"`
	QuantityBefore int        `json:"quantity_before"`
	QuantityAfter  int        `json:"quantity_after"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(unit *StockUnit, changeType ChangeType, delta, before, after int) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeStockUnit, unit.ID),
		StockUnitID:     unit.ID,
		VariantID:       unit.VariantID,
		ChangeType:      changeType,
		QuantityDelta:   delta,
		QuantityBefore:  before,
		QuantityAfter:   after,
	}
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// StockBelowThresholdEvent is raised when a tracked unit crosses its low-stock threshold
type StockBelowThresholdEvent struct {
	shared.BaseDomainEvent
	StockUnitID    uuid.UUID `json:"stock_unit_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	QuantityOnHand int       `json:"quantity_on_hand"`
	Threshold      int       `json:"threshold"`
}

// NewStockBelowThresholdEvent creates a new StockBelowThresholdEvent
func NewStockBelowThresholdEvent(unit *StockUnit) *StockBelowThresholdEvent {
	return &StockBelowThresholdEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowThreshold, AggregateTypeStockUnit, unit.ID),
		StockUnitID:     unit.ID,
		VariantID:       unit.VariantID,
		QuantityOnHand:  unit.QuantityOnHand,
		Threshold:       unit.LowStockThreshold,
	}
}

// EventType returns the event type name
func (e *StockBelowThresholdEvent) EventType() string {
	return EventTypeStockBelowThreshold
}

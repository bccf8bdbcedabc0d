package inventory

import (
	"time"

	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// StockUnitResponse represents a stock unit in API responses
type StockUnitResponse struct {
	ID                uuid.UUID `json:"id"`
	VariantID         uuid.UUID `json:"variant_id"`
	QuantityOnHand    int       `json:"quantity_on_hand"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	TracksInventory   bool      `json:"tracks_inventory"`
	AllowsBackorder   bool      `json:"allows_backorder"`
	IsLowStock        bool      `json:"is_low_stock"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Version           int       `json:"version"`
}

// ToStockUnitResponse converts a domain stock unit to a response DTO
func ToStockUnitResponse(unit *inventory.StockUnit) StockUnitResponse {
	return StockUnitResponse{
		ID:                unit.ID,
		VariantID:         unit.VariantID,
		QuantityOnHand:    unit.QuantityOnHand,
		LowStockThreshold: unit.LowStockThreshold,
		TracksInventory:   unit.TracksInventory,
		AllowsBackorder:   unit.AllowsBackorder,
		IsLowStock:        unit.IsLowStock(),
		CreatedAt:         unit.CreatedAt,
		UpdatedAt:         unit.UpdatedAt,
		Version:           unit.GetVersion(),
	}
}

// ToStockUnitResponses converts a slice of stock units to response DTOs
func ToStockUnitResponses(units []inventory.StockUnit) []StockUnitResponse {
	responses := make([]StockUnitResponse, len(units))
	for i := range units {
		responses[i] = ToStockUnitResponse(&units[i])
	}
	return responses
}

// AdjustStockRequest represents a request to adjust a variant's stock level
type AdjustStockRequest struct {
	VariantID  uuid.UUID `json:"variant_id" binding:"required"`
	Delta      int       `json:"delta" binding:"required"`
	ChangeType string    `json:"change_type" binding:"required,oneof=restocked reserved released sold return"`
	Reference  string    `json:"reference" binding:"omitempty,max=100"`
	Actor      string    `json:"actor" binding:"omitempty,max=100"`
	Notes      string    `json:"notes" binding:"omitempty,max=255"`
}

// AdjustStockResponse represents the outcome of a stock adjustment
type AdjustStockResponse struct {
	StockUnit      StockUnitResponse `json:"stock_unit"`
	QuantityBefore int               `json:"quantity_before"`
	QuantityAfter  int               `json:"quantity_after"`
}

// AdjustmentInput is a single element of a bulk adjustment
type AdjustmentInput struct {
	VariantID  uuid.UUID `json:"variant_id" binding:"required"`
	Delta      int       `json:"delta" binding:"required"`
	ChangeType string    `json:"change_type" binding:"required,oneof=restocked reserved released sold return"`
	Reference  string    `json:"reference" binding:"omitempty,max=100"`
	Notes      string    `json:"notes" binding:"omitempty,max=255"`
}

// BulkAdjustRequest represents a request to adjust several variants at once.
// Each element is applied in its own transaction; one failure does not undo
// the others.
type BulkAdjustRequest struct {
	Adjustments []AdjustmentInput `json:"adjustments" binding:"required,min=1,max=100,dive"`
	Actor       string            `json:"actor" binding:"omitempty,max=100"`
}

// BulkAdjustResult reports the outcome for one element of a bulk adjustment
type BulkAdjustResult struct {
	VariantID      uuid.UUID `json:"variant_id"`
	Succeeded      bool      `json:"succeeded"`
	QuantityBefore int       `json:"quantity_before,omitempty"`
	QuantityAfter  int       `json:"quantity_after,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// BulkAdjustResponse represents the outcome of a bulk adjustment
type BulkAdjustResponse struct {
	Results   []BulkAdjustResult `json:"results"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// AvailabilityItem is a single variant/quantity pair in an availability check
type AvailabilityItem struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// AvailabilityRequest represents a request to check stock availability
type AvailabilityRequest struct {
	Items []AvailabilityItem `json:"items" binding:"required,min=1,max=100,dive"`
}

// AvailabilityItemResult reports availability for one requested variant
type AvailabilityItemResult struct {
	VariantID       uuid.UUID `json:"variant_id"`
	Requested       int       `json:"requested"`
	QuantityOnHand  int       `json:"quantity_on_hand"`
	TracksInventory bool      `json:"tracks_inventory"`
	Available       bool      `json:"available"`
}

// AvailabilityResponse represents the outcome of an availability check.
// The answer is advisory: no locks are taken, so stock may move between this
// check and a later checkout.
type AvailabilityResponse struct {
	Available bool                     `json:"available"`
	Items     []AvailabilityItemResult `json:"items"`
}

// UpsertStockUnitRequest creates a stock unit for a variant or updates its
// settings. QuantityOnHand is only honored at creation time, where it is
// applied as a "restocked" adjustment so the ledger stays complete; existing
// units only change quantity through the adjust endpoint.
type UpsertStockUnitRequest struct {
	VariantID         uuid.UUID `json:"variant_id" binding:"required"`
	QuantityOnHand    *int      `json:"quantity_on_hand" binding:"omitempty,min=0"`
	LowStockThreshold *int      `json:"low_stock_threshold" binding:"omitempty,min=0"`
	TracksInventory   *bool     `json:"tracks_inventory"`
	AllowsBackorder   *bool     `json:"allows_backorder"`
	Actor             string    `json:"actor" binding:"omitempty,max=100"`
}

// StockUnitListFilter represents filter options for the stock unit list
type StockUnitListFilter struct {
	TracksInventory *bool  `form:"tracks_inventory"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy         string `form:"order_by"`
	OrderDir        string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LedgerQuery represents filter options for a variant's ledger history
type LedgerQuery struct {
	ChangeType string     `form:"change_type" binding:"omitempty,oneof=restocked reserved released sold return"`
	StartDate  *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate    *time.Time `form:"end_date" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// LedgerEntryResponse represents a single ledger entry in API responses
type LedgerEntryResponse struct {
	ID             uuid.UUID `json:"id"`
	StockUnitID    uuid.UUID `json:"stock_unit_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	ChangeType     string    `json:"change_type"`
	QuantityDelta  int       `json:"quantity_delta"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reference      string    `json:"reference,omitempty"`
	Actor          string    `json:"actor,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToLedgerEntryResponse converts a domain ledger entry to a response DTO
func ToLedgerEntryResponse(entry *inventory.InventoryLogEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             entry.ID,
		StockUnitID:    entry.StockUnitID,
		VariantID:      entry.VariantID,
		ChangeType:     entry.ChangeType.String(),
		QuantityDelta:  entry.QuantityDelta,
		QuantityBefore: entry.QuantityBefore,
		QuantityAfter:  entry.QuantityAfter,
		Reference:      entry.Reference,
		Actor:          entry.Actor,
		Notes:          entry.Notes,
		CreatedAt:      entry.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of ledger entries to response DTOs
func ToLedgerEntryResponses(entries []inventory.InventoryLogEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLedgerEntryResponse(&entries[i])
	}
	return responses
}

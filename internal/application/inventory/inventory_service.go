package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InventoryService handles stock-level operations for purchasable variants.
// Every quantity mutation goes through a transaction scope so the row lock,
// the new quantity, and the ledger entry commit or roll back together.
type InventoryService struct {
	scope          TransactionScope
	stockUnitRepo  inventory.StockUnitRepository
	logRepo        inventory.InventoryLogRepository
	eventPublisher shared.EventPublisher
}

// NewInventoryService creates a new InventoryService.
// The plain repositories serve non-locking reads; writes go through the scope.
func NewInventoryService(
	scope TransactionScope,
	stockUnitRepo inventory.StockUnitRepository,
	logRepo inventory.InventoryLogRepository,
) *InventoryService {
	return &InventoryService{
		scope:         scope,
		stockUnitRepo: stockUnitRepo,
		logRepo:       logRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishDomainEvents publishes all domain events from the stock unit.
// Called after the transaction commits so handlers never observe rolled-back state.
func (s *InventoryService) publishDomainEvents(ctx context.Context, unit *inventory.StockUnit) {
	if s.eventPublisher == nil || unit == nil {
		return
	}
	events := unit.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = s.eventPublisher.Publish(ctx, events...)
	unit.ClearDomainEvents()
}

// AdjustStock applies a signed delta to a variant's stock level.
//
// The stock unit row is read under an exclusive lock, mutated, saved, and a
// ledger entry appended, all inside one transaction. Concurrent adjustments to
// the same variant serialize on the row lock, which is what makes the
// "last unit" race resolve to exactly one winner.
func (s *InventoryService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*AdjustStockResponse, error) {
	changeType := inventory.ChangeType(req.ChangeType)
	if !changeType.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Invalid change type %q", req.ChangeType))
	}
	if req.Delta == 0 {
		return nil, shared.NewValidationError("Delta cannot be zero")
	}

	var (
		unit          *inventory.StockUnit
		before, after int
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		unit, err = repos.StockUnits().FindByVariantIDForUpdate(ctx, req.VariantID)
		if err != nil {
			return err
		}

		before, after, err = unit.Adjust(req.Delta, changeType, false)
		if err != nil {
			return err
		}

		if err := repos.StockUnits().Save(ctx, unit); err != nil {
			return err
		}

		entry, err := inventory.NewInventoryLogEntry(unit, changeType, req.Delta, before, after, req.Reference)
		if err != nil {
			return err
		}
		if req.Actor != "" {
			entry.WithActor(req.Actor)
		}
		if req.Notes != "" {
			entry.WithNotes(req.Notes)
		}
		return repos.Logs().Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, unit)

	return &AdjustStockResponse{
		StockUnit:      ToStockUnitResponse(unit),
		QuantityBefore: before,
		QuantityAfter:  after,
	}, nil
}

// BulkAdjust applies several adjustments, each in its own transaction.
// A failing element is reported in its result and does not roll back the
// elements that already committed.
func (s *InventoryService) BulkAdjust(ctx context.Context, req BulkAdjustRequest) (*BulkAdjustResponse, error) {
	response := &BulkAdjustResponse{
		Results: make([]BulkAdjustResult, 0, len(req.Adjustments)),
	}

	for _, adj := range req.Adjustments {
		result := BulkAdjustResult{VariantID: adj.VariantID}

		adjusted, err := s.AdjustStock(ctx, AdjustStockRequest{
			VariantID:  adj.VariantID,
			Delta:      adj.Delta,
			ChangeType: adj.ChangeType,
			Reference:  adj.Reference,
			Actor:      req.Actor,
			Notes:      adj.Notes,
		})
		if err != nil {
			result.Error = err.Error()
			response.Failed++
		} else {
			result.Succeeded = true
			result.QuantityBefore = adjusted.QuantityBefore
			result.QuantityAfter = adjusted.QuantityAfter
			response.Succeeded++
		}

		response.Results = append(response.Results, result)
	}

	return response, nil
}

// CheckAvailability reports whether the requested quantities could currently be
// met. No locks are taken; the authoritative check happens under the checkout
// transaction's row locks. Variants without a stock unit are treated as
// untracked and always available.
func (s *InventoryService) CheckAvailability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResponse, error) {
	variantIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		variantIDs = append(variantIDs, item.VariantID)
	}

	units, err := s.stockUnitRepo.FindByVariantIDs(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	unitsByVariant := make(map[uuid.UUID]*inventory.StockUnit, len(units))
	for i := range units {
		unitsByVariant[units[i].VariantID] = &units[i]
	}

	response := &AvailabilityResponse{Available: true}
	for _, item := range req.Items {
		result := AvailabilityItemResult{
			VariantID: item.VariantID,
			Requested: item.Quantity,
		}

		if unit, ok := unitsByVariant[item.VariantID]; ok {
			result.QuantityOnHand = unit.QuantityOnHand
			result.TracksInventory = unit.TracksInventory
			result.Available = unit.CanSatisfy(item.Quantity)
		} else {
			// No stock unit means inventory is not tracked for the variant
			result.Available = true
		}

		if !result.Available {
			response.Available = false
		}
		response.Items = append(response.Items, result)
	}

	return response, nil
}

// UpsertStockUnit creates the stock unit for a variant or updates its settings.
//
// An initial quantity is only honored at creation time and is applied as a
// "restocked" adjustment with its own ledger entry, so even the opening balance
// is reconstructible from the ledger. Quantity changes on an existing unit are
// rejected; those go through AdjustStock.
func (s *InventoryService) UpsertStockUnit(ctx context.Context, req UpsertStockUnitRequest) (*StockUnitResponse, error) {
	var unit *inventory.StockUnit
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.StockUnits().FindByVariantID(ctx, req.VariantID)
		switch {
		case err == nil:
			if req.QuantityOnHand != nil {
				return shared.NewValidationError("Quantity can only be changed through stock adjustments")
			}
			if req.LowStockThreshold != nil {
				if err := existing.SetLowStockThreshold(*req.LowStockThreshold); err != nil {
					return err
				}
			}
			if req.TracksInventory != nil {
				existing.SetTracking(*req.TracksInventory)
			}
			if req.AllowsBackorder != nil {
				existing.SetBackorder(*req.AllowsBackorder)
			}
			unit = existing
			return repos.StockUnits().Save(ctx, unit)

		case errors.Is(err, shared.ErrNotFound):
			// fall through to create

		default:
			return err
		}

		threshold := 0
		if req.LowStockThreshold != nil {
			threshold = *req.LowStockThreshold
		}
		tracks := true
		if req.TracksInventory != nil {
			tracks = *req.TracksInventory
		}
		backorder := false
		if req.AllowsBackorder != nil {
			backorder = *req.AllowsBackorder
		}

		created, err := inventory.NewStockUnit(req.VariantID, 0, threshold, tracks, backorder)
		if err != nil {
			return err
		}

		var entry *inventory.InventoryLogEntry
		if req.QuantityOnHand != nil && *req.QuantityOnHand != 0 {
			// bypassTracking: the opening balance may be seeded before
			// tracking is switched on
			before, after, err := created.Adjust(*req.QuantityOnHand, inventory.ChangeTypeRestocked, true)
			if err != nil {
				return err
			}
			entry, err = inventory.NewInventoryLogEntry(created, inventory.ChangeTypeRestocked, *req.QuantityOnHand, before, after, "initial-stock")
			if err != nil {
				return err
			}
			if req.Actor != "" {
				entry.WithActor(req.Actor)
			}
		}

		if err := repos.StockUnits().Save(ctx, created); err != nil {
			return err
		}
		if entry != nil {
			if err := repos.Logs().Create(ctx, entry); err != nil {
				return err
			}
		}
		unit = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, unit)

	response := ToStockUnitResponse(unit)
	return &response, nil
}

// GetStockUnit retrieves the stock unit for a variant
func (s *InventoryService) GetStockUnit(ctx context.Context, variantID uuid.UUID) (*StockUnitResponse, error) {
	unit, err := s.stockUnitRepo.FindByVariantID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	response := ToStockUnitResponse(unit)
	return &response, nil
}

// ListStockUnits retrieves stock units with filtering and pagination
func (s *InventoryService) ListStockUnits(ctx context.Context, filter StockUnitListFilter) ([]StockUnitResponse, int64, error) {
	domainFilter := buildStockUnitFilter(filter)

	units, err := s.stockUnitRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.stockUnitRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToStockUnitResponses(units), total, nil
}

// ListLowStock retrieves tracked stock units at or below their low-stock threshold
func (s *InventoryService) ListLowStock(ctx context.Context, filter StockUnitListFilter) ([]StockUnitResponse, int64, error) {
	domainFilter := buildStockUnitFilter(filter)
	domainFilter.Filters["low_stock"] = true

	units, err := s.stockUnitRepo.FindLowStock(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.stockUnitRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToStockUnitResponses(units), total, nil
}

// GetLedger retrieves a variant's adjustment history, newest first
func (s *InventoryService) GetLedger(ctx context.Context, variantID uuid.UUID, query LedgerQuery) ([]LedgerEntryResponse, int64, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	ledgerFilter := inventory.LedgerFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
			Filters:  make(map[string]interface{}),
		},
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
	}
	if query.ChangeType != "" {
		changeType := inventory.ChangeType(query.ChangeType)
		if !changeType.IsValid() {
			return nil, 0, shared.NewValidationError(fmt.Sprintf("Invalid change type %q", query.ChangeType))
		}
		ledgerFilter.ChangeType = &changeType
	}

	entries, err := s.logRepo.FindByVariant(ctx, variantID, ledgerFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.logRepo.CountByVariant(ctx, variantID, ledgerFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToLedgerEntryResponses(entries), total, nil
}

// buildStockUnitFilter maps the API filter onto the domain filter
func buildStockUnitFilter(filter StockUnitListFilter) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "updated_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if filter.TracksInventory != nil {
		domainFilter.Filters["tracks_inventory"] = *filter.TracksInventory
	}
	return domainFilter
}

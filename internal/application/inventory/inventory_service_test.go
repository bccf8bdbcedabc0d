package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStockUnitRepository is a mock implementation of StockUnitRepository
type MockStockUnitRepository struct {
	mock.Mock
}

func (m *MockStockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockUnit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindByVariantID(ctx context.Context, variantID uuid.UUID) (*inventory.StockUnit, error) {
	args := m.Called(ctx, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindByVariantIDForUpdate(ctx context.Context, variantID uuid.UUID) (*inventory.StockUnit, error) {
	args := m.Called(ctx, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindByVariantIDs(ctx context.Context, variantIDs []uuid.UUID) ([]inventory.StockUnit, error) {
	args := m.Called(ctx, variantIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.StockUnit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindLowStock(ctx context.Context, filter shared.Filter) ([]inventory.StockUnit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) Save(ctx context.Context, unit *inventory.StockUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockStockUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStockUnitRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockInventoryLogRepository is a mock implementation of InventoryLogRepository
type MockInventoryLogRepository struct {
	mock.Mock
}

func (m *MockInventoryLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryLogEntry), args.Error(1)
}

func (m *MockInventoryLogRepository) FindByVariant(ctx context.Context, variantID uuid.UUID, filter inventory.LedgerFilter) ([]inventory.InventoryLogEntry, error) {
	args := m.Called(ctx, variantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.InventoryLogEntry), args.Error(1)
}

func (m *MockInventoryLogRepository) FindByReference(ctx context.Context, reference string) ([]inventory.InventoryLogEntry, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.InventoryLogEntry), args.Error(1)
}

func (m *MockInventoryLogRepository) Create(ctx context.Context, entry *inventory.InventoryLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockInventoryLogRepository) CountByVariant(ctx context.Context, variantID uuid.UUID, filter inventory.LedgerFilter) (int64, error) {
	args := m.Called(ctx, variantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher collects published events for assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *MockEventPublisher) GetEvents() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}

func (p *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []shared.DomainEvent
	for _, event := range p.events {
		if event.EventType() == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func (p *MockEventPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// Test helpers

func newTestService() (*InventoryService, *MockStockUnitRepository, *MockInventoryLogRepository, *MockEventPublisher) {
	stockRepo := new(MockStockUnitRepository)
	logRepo := new(MockInventoryLogRepository)
	service := NewInventoryService(NewNoOpTransactionScope(stockRepo, logRepo), stockRepo, logRepo)
	publisher := &MockEventPublisher{}
	service.SetEventPublisher(publisher)
	return service, stockRepo, logRepo, publisher
}

func createTestStockUnit(t *testing.T, quantity, threshold int) *inventory.StockUnit {
	t.Helper()
	unit, err := inventory.NewStockUnit(uuid.New(), quantity, threshold, true, false)
	require.NoError(t, err)
	return unit
}

// Tests

func TestInventoryService_AdjustStock(t *testing.T) {
	ctx := context.Background()

	t.Run("deducts stock and writes a ledger entry", func(t *testing.T) {
		service, stockRepo, logRepo, publisher := newTestService()
		unit := createTestStockUnit(t, 10, 0)

		var logged *inventory.InventoryLogEntry
		stockRepo.On("FindByVariantIDForUpdate", ctx, unit.VariantID).Return(unit, nil).Once()
		stockRepo.On("Save", ctx, unit).Return(nil).Once()
		logRepo.On("Create", ctx, mock.AnythingOfType("*inventory.InventoryLogEntry")).
			Run(func(args mock.Arguments) {
				logged = args.Get(1).(*inventory.InventoryLogEntry)
			}).Return(nil).Once()

		resp, err := service.AdjustStock(ctx, AdjustStockRequest{
			VariantID:  unit.VariantID,
			Delta:      -3,
			ChangeType: "sold",
			Reference:  "ORD-2026-00042",
			Actor:      "staff@example.com",
		})

		require.NoError(t, err)
		assert.Equal(t, 10, resp.QuantityBefore)
		assert.Equal(t, 7, resp.QuantityAfter)
		assert.Equal(t, 7, resp.StockUnit.QuantityOnHand)

		require.NotNil(t, logged)
		assert.Equal(t, unit.ID, logged.StockUnitID)
		assert.Equal(t, inventory.ChangeTypeSold, logged.ChangeType)
		assert.Equal(t, -3, logged.QuantityDelta)
		assert.Equal(t, 10, logged.QuantityBefore)
		assert.Equal(t, 7, logged.QuantityAfter)
		assert.Equal(t, "ORD-2026-00042", logged.Reference)
		assert.Equal(t, "staff@example.com", logged.Actor)

		assert.Len(t, publisher.GetEventsByType(inventory.EventTypeStockAdjusted), 1)
		stockRepo.AssertExpectations(t)
		logRepo.AssertExpectations(t)
	})

	t.Run("rejects a deduction past zero", func(t *testing.T) {
		service, stockRepo, _, publisher := newTestService()
		unit := createTestStockUnit(t, 1, 0)

		stockRepo.On("FindByVariantIDForUpdate", ctx, unit.VariantID).Return(unit, nil).Once()

		_, err := service.AdjustStock(ctx, AdjustStockRequest{
			VariantID:  unit.VariantID,
			Delta:      -2,
			ChangeType: "sold",
		})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
		assert.Equal(t, 1, unit.QuantityOnHand)
		assert.Empty(t, publisher.GetEvents())
		stockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("emits a low stock alert on the downward crossing", func(t *testing.T) {
		service, stockRepo, logRepo, publisher := newTestService()
		unit := createTestStockUnit(t, 6, 5)

		stockRepo.On("FindByVariantIDForUpdate", ctx, unit.VariantID).Return(unit, nil).Once()
		stockRepo.On("Save", ctx, unit).Return(nil).Once()
		logRepo.On("Create", ctx, mock.AnythingOfType("*inventory.InventoryLogEntry")).Return(nil).Once()

		_, err := service.AdjustStock(ctx, AdjustStockRequest{
			VariantID:  unit.VariantID,
			Delta:      -2,
			ChangeType: "sold",
		})

		require.NoError(t, err)
		assert.Len(t, publisher.GetEventsByType(inventory.EventTypeStockAdjusted), 1)
		assert.Len(t, publisher.GetEventsByType(inventory.EventTypeStockBelowThreshold), 1)
	})

	t.Run("rejects an unknown change type", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()

		_, err := service.AdjustStock(ctx, AdjustStockRequest{
			VariantID:  uuid.New(),
			Delta:      5,
			ChangeType: "gifted",
		})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		stockRepo.AssertNotCalled(t, "FindByVariantIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("rejects a zero delta", func(t *testing.T) {
		service, _, _, _ := newTestService()

		_, err := service.AdjustStock(ctx, AdjustStockRequest{
			VariantID:  uuid.New(),
			Delta:      0,
			ChangeType: "restocked",
		})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
	})

	t.Run("propagates a missing stock unit", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		variantID := uuid.New()

		stockRepo.On("FindByVariantIDForUpdate", ctx, variantID).Return(nil, shared.ErrNotFound).Once()

		_, err := service.AdjustStock(ctx, AdjustStockRequest{
			VariantID:  variantID,
			Delta:      5,
			ChangeType: "restocked",
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestInventoryService_BulkAdjust(t *testing.T) {
	ctx := context.Background()

	t.Run("each element is independently atomic", func(t *testing.T) {
		service, stockRepo, logRepo, _ := newTestService()
		healthy := createTestStockUnit(t, 10, 0)
		scarce := createTestStockUnit(t, 1, 0)

		stockRepo.On("FindByVariantIDForUpdate", ctx, healthy.VariantID).Return(healthy, nil).Once()
		stockRepo.On("FindByVariantIDForUpdate", ctx, scarce.VariantID).Return(scarce, nil).Once()
		stockRepo.On("Save", ctx, healthy).Return(nil).Once()
		logRepo.On("Create", ctx, mock.AnythingOfType("*inventory.InventoryLogEntry")).Return(nil).Once()

		resp, err := service.BulkAdjust(ctx, BulkAdjustRequest{
			Actor: "stock-count",
			Adjustments: []AdjustmentInput{
				{VariantID: healthy.VariantID, Delta: -3, ChangeType: "sold"},
				{VariantID: scarce.VariantID, Delta: -5, ChangeType: "sold"},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, resp.Succeeded)
		assert.Equal(t, 1, resp.Failed)
		require.Len(t, resp.Results, 2)

		assert.True(t, resp.Results[0].Succeeded)
		assert.Equal(t, 7, resp.Results[0].QuantityAfter)
		assert.False(t, resp.Results[1].Succeeded)
		assert.NotEmpty(t, resp.Results[1].Error)

		// The failed element rolled back nothing for the one that committed
		assert.Equal(t, 7, healthy.QuantityOnHand)
		assert.Equal(t, 1, scarce.QuantityOnHand)
	})
}

func TestInventoryService_CheckAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("reports per item availability", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		tracked := createTestStockUnit(t, 5, 0)
		untrackedVariant := uuid.New()

		stockRepo.On("FindByVariantIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return([]inventory.StockUnit{*tracked}, nil).Once()

		resp, err := service.CheckAvailability(ctx, AvailabilityRequest{
			Items: []AvailabilityItem{
				{VariantID: tracked.VariantID, Quantity: 3},
				{VariantID: untrackedVariant, Quantity: 99},
			},
		})

		require.NoError(t, err)
		assert.True(t, resp.Available)
		require.Len(t, resp.Items, 2)
		assert.True(t, resp.Items[0].Available)
		assert.Equal(t, 5, resp.Items[0].QuantityOnHand)
		// No stock unit row means the variant is not tracked
		assert.True(t, resp.Items[1].Available)
		assert.False(t, resp.Items[1].TracksInventory)
	})

	t.Run("flags shortfalls without locking", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		unit := createTestStockUnit(t, 2, 0)

		stockRepo.On("FindByVariantIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return([]inventory.StockUnit{*unit}, nil).Once()

		resp, err := service.CheckAvailability(ctx, AvailabilityRequest{
			Items: []AvailabilityItem{{VariantID: unit.VariantID, Quantity: 3}},
		})

		require.NoError(t, err)
		assert.False(t, resp.Available)
		assert.False(t, resp.Items[0].Available)
		stockRepo.AssertNotCalled(t, "FindByVariantIDForUpdate", mock.Anything, mock.Anything)
	})
}

func TestInventoryService_UpsertStockUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a unit and seeds the opening balance", func(t *testing.T) {
		service, stockRepo, logRepo, publisher := newTestService()
		variantID := uuid.New()
		quantity := 25
		threshold := 5

		var saved *inventory.StockUnit
		var logged *inventory.InventoryLogEntry
		stockRepo.On("FindByVariantID", ctx, variantID).Return(nil, shared.ErrNotFound).Once()
		stockRepo.On("Save", ctx, mock.AnythingOfType("*inventory.StockUnit")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*inventory.StockUnit)
			}).Return(nil).Once()
		logRepo.On("Create", ctx, mock.AnythingOfType("*inventory.InventoryLogEntry")).
			Run(func(args mock.Arguments) {
				logged = args.Get(1).(*inventory.InventoryLogEntry)
			}).Return(nil).Once()

		resp, err := service.UpsertStockUnit(ctx, UpsertStockUnitRequest{
			VariantID:         variantID,
			QuantityOnHand:    &quantity,
			LowStockThreshold: &threshold,
			Actor:             "seed-script",
		})

		require.NoError(t, err)
		assert.Equal(t, 25, resp.QuantityOnHand)
		assert.Equal(t, 5, resp.LowStockThreshold)
		assert.True(t, resp.TracksInventory)

		require.NotNil(t, saved)
		assert.Equal(t, variantID, saved.VariantID)

		// The opening balance lands in the ledger like any other movement
		require.NotNil(t, logged)
		assert.Equal(t, inventory.ChangeTypeRestocked, logged.ChangeType)
		assert.Equal(t, 25, logged.QuantityDelta)
		assert.Equal(t, 0, logged.QuantityBefore)
		assert.Equal(t, 25, logged.QuantityAfter)
		assert.Equal(t, "initial-stock", logged.Reference)
		assert.Equal(t, "seed-script", logged.Actor)

		assert.Len(t, publisher.GetEventsByType(inventory.EventTypeStockAdjusted), 1)
	})

	t.Run("creates an untracked unit with a seeded balance", func(t *testing.T) {
		service, stockRepo, logRepo, _ := newTestService()
		variantID := uuid.New()
		quantity := 10
		tracks := false

		stockRepo.On("FindByVariantID", ctx, variantID).Return(nil, shared.ErrNotFound).Once()
		stockRepo.On("Save", ctx, mock.AnythingOfType("*inventory.StockUnit")).Return(nil).Once()
		logRepo.On("Create", ctx, mock.AnythingOfType("*inventory.InventoryLogEntry")).Return(nil).Once()

		resp, err := service.UpsertStockUnit(ctx, UpsertStockUnitRequest{
			VariantID:       variantID,
			QuantityOnHand:  &quantity,
			TracksInventory: &tracks,
		})

		require.NoError(t, err)
		assert.Equal(t, 10, resp.QuantityOnHand)
		assert.False(t, resp.TracksInventory)
	})

	t.Run("updates settings on an existing unit", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		unit := createTestStockUnit(t, 8, 0)
		backorder := true
		threshold := 3

		stockRepo.On("FindByVariantID", ctx, unit.VariantID).Return(unit, nil).Once()
		stockRepo.On("Save", ctx, unit).Return(nil).Once()

		resp, err := service.UpsertStockUnit(ctx, UpsertStockUnitRequest{
			VariantID:         unit.VariantID,
			LowStockThreshold: &threshold,
			AllowsBackorder:   &backorder,
		})

		require.NoError(t, err)
		assert.Equal(t, 8, resp.QuantityOnHand)
		assert.Equal(t, 3, resp.LowStockThreshold)
		assert.True(t, resp.AllowsBackorder)
	})

	t.Run("rejects quantity changes on an existing unit", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		unit := createTestStockUnit(t, 8, 0)
		quantity := 20

		stockRepo.On("FindByVariantID", ctx, unit.VariantID).Return(unit, nil).Once()

		_, err := service.UpsertStockUnit(ctx, UpsertStockUnitRequest{
			VariantID:      unit.VariantID,
			QuantityOnHand: &quantity,
		})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		assert.Equal(t, 8, unit.QuantityOnHand)
		stockRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestInventoryService_GetStockUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the unit for a variant", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		unit := createTestStockUnit(t, 12, 4)

		stockRepo.On("FindByVariantID", ctx, unit.VariantID).Return(unit, nil).Once()

		resp, err := service.GetStockUnit(ctx, unit.VariantID)

		require.NoError(t, err)
		assert.Equal(t, unit.VariantID, resp.VariantID)
		assert.Equal(t, 12, resp.QuantityOnHand)
		assert.False(t, resp.IsLowStock)
	})

	t.Run("propagates not found", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		variantID := uuid.New()

		stockRepo.On("FindByVariantID", ctx, variantID).Return(nil, shared.ErrNotFound).Once()

		_, err := service.GetStockUnit(ctx, variantID)

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestInventoryService_ListLowStock(t *testing.T) {
	ctx := context.Background()

	t.Run("queries with the low stock flag", func(t *testing.T) {
		service, stockRepo, _, _ := newTestService()
		unit := createTestStockUnit(t, 2, 5)

		matchLowStock := mock.MatchedBy(func(filter shared.Filter) bool {
			flagged, ok := filter.Filters["low_stock"].(bool)
			return ok && flagged
		})
		stockRepo.On("FindLowStock", ctx, matchLowStock).Return([]inventory.StockUnit{*unit}, nil).Once()
		stockRepo.On("Count", ctx, matchLowStock).Return(int64(1), nil).Once()

		units, total, err := service.ListLowStock(ctx, StockUnitListFilter{})

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, units, 1)
		assert.True(t, units[0].IsLowStock)
		stockRepo.AssertExpectations(t)
	})
}

func TestInventoryService_GetLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("returns history with the change type filter applied", func(t *testing.T) {
		service, _, logRepo, _ := newTestService()
		unit := createTestStockUnit(t, 10, 0)

		entry, err := inventory.NewInventoryLogEntry(unit, inventory.ChangeTypeSold, -3, 10, 7, "ORD-2026-00042")
		require.NoError(t, err)

		var usedFilter inventory.LedgerFilter
		logRepo.On("FindByVariant", ctx, unit.VariantID, mock.AnythingOfType("inventory.LedgerFilter")).
			Run(func(args mock.Arguments) {
				usedFilter = args.Get(2).(inventory.LedgerFilter)
			}).Return([]inventory.InventoryLogEntry{*entry}, nil).Once()
		logRepo.On("CountByVariant", ctx, unit.VariantID, mock.AnythingOfType("inventory.LedgerFilter")).
			Return(int64(1), nil).Once()

		entries, total, err := service.GetLedger(ctx, unit.VariantID, LedgerQuery{ChangeType: "sold"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, "sold", entries[0].ChangeType)
		assert.Equal(t, -3, entries[0].QuantityDelta)

		require.NotNil(t, usedFilter.ChangeType)
		assert.Equal(t, inventory.ChangeTypeSold, *usedFilter.ChangeType)
		assert.Equal(t, 1, usedFilter.Page)
		assert.Equal(t, 20, usedFilter.PageSize)
	})

	t.Run("rejects an unknown change type filter", func(t *testing.T) {
		service, _, logRepo, _ := newTestService()

		_, _, err := service.GetLedger(ctx, uuid.New(), LedgerQuery{ChangeType: "gifted"})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		logRepo.AssertNotCalled(t, "FindByVariant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("passes the date window through", func(t *testing.T) {
		service, _, logRepo, _ := newTestService()
		variantID := uuid.New()
		start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

		var usedFilter inventory.LedgerFilter
		logRepo.On("FindByVariant", ctx, variantID, mock.AnythingOfType("inventory.LedgerFilter")).
			Run(func(args mock.Arguments) {
				usedFilter = args.Get(2).(inventory.LedgerFilter)
			}).Return([]inventory.InventoryLogEntry{}, nil).Once()
		logRepo.On("CountByVariant", ctx, variantID, mock.AnythingOfType("inventory.LedgerFilter")).
			Return(int64(0), nil).Once()

		_, _, err := service.GetLedger(ctx, variantID, LedgerQuery{StartDate: &start, EndDate: &end})

		require.NoError(t, err)
		require.NotNil(t, usedFilter.StartDate)
		require.NotNil(t, usedFilter.EndDate)
		assert.Equal(t, start, *usedFilter.StartDate)
		assert.Equal(t, end, *usedFilter.EndDate)
	})
}

package cart

import (
	"context"
	"testing"
	"time"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/catalog"
	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCartRepository is a mock implementation of CartRepository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) FindBySessionKey(ctx context.Context, sessionKey string, now time.Time) (*cart.Cart, error) {
	args := m.Called(ctx, sessionKey, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCartRepository) SaveLine(ctx context.Context, line *cart.CartLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	args := m.Called(ctx, lineID)
	return args.Error(0)
}

func (m *MockCartRepository) ClearLines(ctx context.Context, cartID uuid.UUID) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCartRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockCatalog is a mock implementation of the catalog port
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Variant(ctx context.Context, id uuid.UUID) (*catalog.VariantInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.VariantInfo), args.Error(1)
}

func (m *MockCatalog) Variants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.VariantInfo, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]catalog.VariantInfo), args.Error(1)
}

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

// Test helpers

func newTestService() (*CartService, *MockCartRepository, *MockCatalog, *MockStockUnitRepository) {
	cartRepo := new(MockCartRepository)
	catalogPort := new(MockCatalog)
	stockRepo := new(MockStockUnitRepository)
	service := NewCartService(cartRepo, catalogPort, stockRepo)
	return service, cartRepo, catalogPort, stockRepo
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func purchasableVariant(id uuid.UUID, priceStr string) catalog.VariantInfo {
	return catalog.VariantInfo{
		ID:               id,
		ProductID:        uuid.New(),
		CategoryID:       uuid.New(),
		ProductName:      "Cotton Panjabi",
		VariantName:      "Navy / L",
		SKU:              "PNJ-NVY-L",
		Price:            price(priceStr),
		IsActive:         true,
		ProductPublished: true,
	}
}

func trackedUnit(t *testing.T, variantID uuid.UUID, quantity int) *inventory.StockUnit {
	t.Helper()
	unit, err := inventory.NewStockUnit(variantID, quantity, 0, true, false)
	require.NoError(t, err)
	return unit
}

// Tests

func TestCartService_GetCart(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a guest cart on first access", func(t *testing.T) {
		service, cartRepo, _, _ := newTestService()

		var saved *cart.Cart
		cartRepo.On("FindBySessionKey", ctx, "sess-abc", mock.AnythingOfType("time.Time")).
			Return(nil, shared.ErrNotFound).Once()
		cartRepo.On("Save", ctx, mock.AnythingOfType("*cart.Cart")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*cart.Cart)
			}).Return(nil).Once()

		resp, err := service.GetCart(ctx, GuestOwner("sess-abc"))

		require.NoError(t, err)
		assert.True(t, resp.IsGuest)
		assert.Empty(t, resp.Lines)
		require.NotNil(t, saved)
		assert.Equal(t, "sess-abc", saved.SessionKey)
		require.NotNil(t, saved.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(cart.GuestCartTTL), *saved.ExpiresAt, time.Minute)
	})

	t.Run("refreshes a guest cart close to expiry", func(t *testing.T) {
		service, cartRepo, _, _ := newTestService()

		existing, err := cart.NewGuestCart("sess-old", time.Now())
		require.NoError(t, err)
		soon := time.Now().Add(3 * 24 * time.Hour)
		existing.ExpiresAt = &soon

		cartRepo.On("FindBySessionKey", ctx, "sess-old", mock.AnythingOfType("time.Time")).
			Return(existing, nil).Once()
		cartRepo.On("Save", ctx, existing).Return(nil).Once()

		resp, err := service.GetCart(ctx, GuestOwner("sess-old"))

		require.NoError(t, err)
		require.NotNil(t, resp.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(cart.GuestCartTTL), *resp.ExpiresAt, time.Minute)
		cartRepo.AssertExpectations(t)
	})

	t.Run("returns the existing user cart with catalog context", func(t *testing.T) {
		service, cartRepo, catalogPort, _ := newTestService()
		userID := uuid.New()
		variantID := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(variantID, 2, price("500.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: purchasableVariant(variantID, "500.00")}, nil).Once()

		resp, err := service.GetCart(ctx, UserOwner(userID))

		require.NoError(t, err)
		assert.False(t, resp.IsGuest)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, "Cotton Panjabi", resp.Lines[0].ProductName)
		assert.True(t, resp.Lines[0].Purchasable)
		assert.True(t, resp.Subtotal.Equal(price("1000.00")))
	})
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("adds a purchasable variant", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		variantID := uuid.New()
		info := purchasableVariant(variantID, "500.00")

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variant", ctx, variantID).Return(&info, nil).Once()
		stockRepo.On("FindByVariantID", ctx, variantID).Return(nil, shared.ErrNotFound).Once()
		cartRepo.On("SaveLine", ctx, mock.AnythingOfType("*cart.CartLine")).Return(nil).Once()
		cartRepo.On("Save", ctx, userCart).Return(nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: info}, nil).Once()

		resp, err := service.AddItem(ctx, UserOwner(userID), AddItemRequest{VariantID: variantID, Quantity: 2})

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, 2, resp.Lines[0].Quantity)
		assert.True(t, resp.Lines[0].UnitPrice.Equal(price("500.00")))
		assert.True(t, resp.Subtotal.Equal(price("1000.00")))
		cartRepo.AssertExpectations(t)
	})

	t.Run("rejects an unknown variant", func(t *testing.T) {
		service, cartRepo, catalogPort, _ := newTestService()
		variantID := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variant", ctx, variantID).Return(nil, shared.ErrNotFound).Once()

		_, err = service.AddItem(ctx, UserOwner(userID), AddItemRequest{VariantID: variantID, Quantity: 1})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})

	t.Run("rejects an unpurchasable variant", func(t *testing.T) {
		service, cartRepo, catalogPort, _ := newTestService()
		variantID := uuid.New()
		info := purchasableVariant(variantID, "500.00")
		info.IsActive = false

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variant", ctx, variantID).Return(&info, nil).Once()

		_, err = service.AddItem(ctx, UserOwner(userID), AddItemRequest{VariantID: variantID, Quantity: 1})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeValidation))
		cartRepo.AssertNotCalled(t, "SaveLine", mock.Anything, mock.Anything)
	})

	t.Run("gates on the merged line total", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		variantID := uuid.New()
		info := purchasableVariant(variantID, "500.00")

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(variantID, 2, price("500.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variant", ctx, variantID).Return(&info, nil).Once()
		stockRepo.On("FindByVariantID", ctx, variantID).Return(trackedUnit(t, variantID, 4), nil).Once()

		_, err = service.AddItem(ctx, UserOwner(userID), AddItemRequest{VariantID: variantID, Quantity: 3})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
		assert.Contains(t, err.Error(), "only 4 available")
		assert.Equal(t, 2, userCart.Lines[0].Quantity, "line untouched")
		cartRepo.AssertNotCalled(t, "SaveLine", mock.Anything, mock.Anything)
	})
}

func TestCartService_UpdateItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("updates quantity and re-snapshots the price", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		variantID := uuid.New()
		info := purchasableVariant(variantID, "450.00")

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		line, _, err := userCart.AddLine(variantID, 2, price("500.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variant", ctx, variantID).Return(&info, nil).Once()
		stockRepo.On("FindByVariantID", ctx, variantID).Return(nil, shared.ErrNotFound).Once()
		cartRepo.On("SaveLine", ctx, mock.AnythingOfType("*cart.CartLine")).Return(nil).Once()
		cartRepo.On("Save", ctx, userCart).Return(nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: info}, nil).Once()

		resp, err := service.UpdateItem(ctx, UserOwner(userID), line.ID, UpdateItemRequest{Quantity: 3})

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, 3, resp.Lines[0].Quantity)
		assert.True(t, resp.Lines[0].UnitPrice.Equal(price("450.00")))
		assert.True(t, resp.Subtotal.Equal(price("1350.00")))
	})

	t.Run("returns not found for an unknown line", func(t *testing.T) {
		service, cartRepo, _, _ := newTestService()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()

		_, err = service.UpdateItem(ctx, UserOwner(userID), uuid.New(), UpdateItemRequest{Quantity: 1})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeNotFound))
	})
}

func TestCartService_RemoveItem(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	service, cartRepo, _, _ := newTestService()
	variantID := uuid.New()

	userCart, err := cart.NewUserCart(userID)
	require.NoError(t, err)
	line, _, err := userCart.AddLine(variantID, 1, price("99.99"))
	require.NoError(t, err)
	lineID := line.ID

	cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
	cartRepo.On("DeleteLine", ctx, lineID).Return(nil).Once()
	cartRepo.On("Save", ctx, userCart).Return(nil).Once()

	resp, err := service.RemoveItem(ctx, UserOwner(userID), lineID)

	require.NoError(t, err)
	assert.Empty(t, resp.Lines)
	assert.True(t, resp.Subtotal.IsZero())
	cartRepo.AssertExpectations(t)
}

func TestCartService_ClearCart(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	service, cartRepo, _, _ := newTestService()

	userCart, err := cart.NewUserCart(userID)
	require.NoError(t, err)
	_, _, err = userCart.AddLine(uuid.New(), 2, price("500.00"))
	require.NoError(t, err)

	cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
	cartRepo.On("ClearLines", ctx, userCart.ID).Return(nil).Once()
	cartRepo.On("Save", ctx, userCart).Return(nil).Once()

	resp, err := service.ClearCart(ctx, UserOwner(userID))

	require.NoError(t, err)
	assert.Empty(t, resp.Lines)
	cartRepo.AssertExpectations(t)
}

func TestCartService_MergeCarts(t *testing.T) {
	ctx := context.Background()

	t.Run("merges by the higher quantity and deletes the guest cart", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		userID := uuid.New()
		sharedVariant := uuid.New()
		guestOnlyVariant := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(sharedVariant, 2, price("250.00"))
		require.NoError(t, err)

		guestCart, err := cart.NewGuestCart("sess-merge", time.Now())
		require.NoError(t, err)
		_, _, err = guestCart.AddLine(sharedVariant, 5, price("240.00"))
		require.NoError(t, err)
		_, _, err = guestCart.AddLine(guestOnlyVariant, 1, price("99.99"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		cartRepo.On("FindBySessionKey", ctx, "sess-merge", mock.AnythingOfType("time.Time")).
			Return(guestCart, nil).Once()
		cartRepo.On("SaveLine", ctx, mock.AnythingOfType("*cart.CartLine")).Return(nil).Times(2)
		cartRepo.On("Save", ctx, userCart).Return(nil).Once()
		cartRepo.On("Delete", ctx, guestCart.ID).Return(nil).Once()
		stockRepo.On("FindByVariantID", ctx, sharedVariant).
			Return(trackedUnit(t, sharedVariant, 10), nil).Once()
		stockRepo.On("FindByVariantID", ctx, guestOnlyVariant).
			Return(nil, shared.ErrNotFound).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{
				sharedVariant:    purchasableVariant(sharedVariant, "260.00"),
				guestOnlyVariant: purchasableVariant(guestOnlyVariant, "99.99"),
			}, nil).Twice()

		resp, err := service.MergeCarts(ctx, userID, "sess-merge")

		require.NoError(t, err)
		require.Len(t, resp.Lines, 2)

		mergedLine := userCart.LineForVariant(sharedVariant)
		assert.Equal(t, 5, mergedLine.Quantity, "higher quantity wins")
		assert.True(t, mergedLine.UnitPriceSnapshot.Equal(price("260.00")),
			"raised line re-snapshots at the live price")
		assert.Equal(t, 1, userCart.LineForVariant(guestOnlyVariant).Quantity)
		assert.True(t, resp.Subtotal.Equal(price("1399.99")))
		cartRepo.AssertExpectations(t)
		stockRepo.AssertExpectations(t)
	})

	t.Run("over-stock guest quantity keeps the user's line", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		userID := uuid.New()
		variantID := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(variantID, 1, price("100.00"))
		require.NoError(t, err)

		guestCart, err := cart.NewGuestCart("sess-scarce", time.Now())
		require.NoError(t, err)
		_, _, err = guestCart.AddLine(variantID, 50, price("100.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		cartRepo.On("FindBySessionKey", ctx, "sess-scarce", mock.AnythingOfType("time.Time")).
			Return(guestCart, nil).Once()
		cartRepo.On("SaveLine", ctx, mock.AnythingOfType("*cart.CartLine")).Return(nil).Once()
		cartRepo.On("Save", ctx, userCart).Return(nil).Once()
		cartRepo.On("Delete", ctx, guestCart.ID).Return(nil).Once()
		stockRepo.On("FindByVariantID", ctx, variantID).
			Return(trackedUnit(t, variantID, 5), nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: purchasableVariant(variantID, "100.00")}, nil).Twice()

		resp, err := service.MergeCarts(ctx, userID, "sess-scarce")

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		line := userCart.LineForVariant(variantID)
		assert.Equal(t, 1, line.Quantity, "denied raise keeps the lower quantity")
		assert.True(t, line.UnitPriceSnapshot.Equal(price("100.00")), "snapshot untouched")
		stockRepo.AssertExpectations(t)
	})

	t.Run("unsatisfiable guest-only line stays behind", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		userID := uuid.New()
		variantID := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)

		guestCart, err := cart.NewGuestCart("sess-gone", time.Now())
		require.NoError(t, err)
		_, _, err = guestCart.AddLine(variantID, 3, price("100.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		cartRepo.On("FindBySessionKey", ctx, "sess-gone", mock.AnythingOfType("time.Time")).
			Return(guestCart, nil).Once()
		cartRepo.On("Save", ctx, userCart).Return(nil).Once()
		cartRepo.On("Delete", ctx, guestCart.ID).Return(nil).Once()
		stockRepo.On("FindByVariantID", ctx, variantID).
			Return(trackedUnit(t, variantID, 0), nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: purchasableVariant(variantID, "100.00")}, nil).Once()

		resp, err := service.MergeCarts(ctx, userID, "sess-gone")

		require.NoError(t, err)
		assert.Empty(t, resp.Lines)
		cartRepo.AssertNotCalled(t, "SaveLine", mock.Anything, mock.Anything)
		stockRepo.AssertExpectations(t)
	})

	t.Run("missing guest cart is a no-op", func(t *testing.T) {
		service, cartRepo, catalogPort, _ := newTestService()
		userID := uuid.New()
		variantID := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(variantID, 1, price("100.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		cartRepo.On("FindBySessionKey", ctx, "sess-empty", mock.AnythingOfType("time.Time")).
			Return(nil, shared.ErrNotFound).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: purchasableVariant(variantID, "100.00")}, nil).Once()

		resp, err := service.MergeCarts(ctx, userID, "sess-empty")

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		cartRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestCartService_ValidateForCheckout(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("collects every issue at once", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		goneVariant := uuid.New()
		scarceVariant := uuid.New()
		driftedVariant := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(goneVariant, 1, price("100.00"))
		require.NoError(t, err)
		_, _, err = userCart.AddLine(scarceVariant, 3, price("200.00"))
		require.NoError(t, err)
		_, _, err = userCart.AddLine(driftedVariant, 1, price("100.00"))
		require.NoError(t, err)

		scarceUnit := trackedUnit(t, scarceVariant, 1)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{
				scarceVariant:  purchasableVariant(scarceVariant, "200.00"),
				driftedVariant: purchasableVariant(driftedVariant, "150.00"),
			}, nil).Once()
		stockRepo.On("FindByVariantIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return([]inventory.StockUnit{*scarceUnit}, nil).Once()

		resp, err := service.ValidateForCheckout(ctx, UserOwner(userID))

		require.NoError(t, err)
		assert.False(t, resp.Valid)
		require.Len(t, resp.Issues, 3)

		assert.Equal(t, cart.IssueVariantUnavailable, resp.Issues[0].Code)
		assert.Equal(t, goneVariant, resp.Issues[0].VariantID)

		assert.Equal(t, cart.IssueInsufficientStock, resp.Issues[1].Code)
		assert.Contains(t, resp.Issues[1].Message, "Only 1 in stock")

		assert.Equal(t, cart.IssuePriceDrift, resp.Issues[2].Code)
		assert.Equal(t, cart.SeverityWarning, resp.Issues[2].Severity)
		assert.True(t, resp.Issues[2].NewPrice.Equal(price("150.00")))
	})

	t.Run("warnings alone do not block", func(t *testing.T) {
		service, cartRepo, catalogPort, stockRepo := newTestService()
		variantID := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(variantID, 1, price("100.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: purchasableVariant(variantID, "120.00")}, nil).Once()
		stockRepo.On("FindByVariantIDs", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return([]inventory.StockUnit{}, nil).Once()

		resp, err := service.ValidateForCheckout(ctx, UserOwner(userID))

		require.NoError(t, err)
		assert.True(t, resp.Valid)
		require.Len(t, resp.Issues, 1)
		assert.Equal(t, cart.IssuePriceDrift, resp.Issues[0].Code)
	})

	t.Run("an empty cart blocks", func(t *testing.T) {
		service, cartRepo, _, _ := newTestService()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()

		resp, err := service.ValidateForCheckout(ctx, UserOwner(userID))

		require.NoError(t, err)
		assert.False(t, resp.Valid)
		require.Len(t, resp.Issues, 1)
		assert.Equal(t, cart.IssueEmptyCart, resp.Issues[0].Code)
	})
}

func TestCartService_RefreshPrices(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("re-snapshots drifted lines", func(t *testing.T) {
		service, cartRepo, catalogPort, _ := newTestService()
		stableVariant := uuid.New()
		driftedVariant := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(stableVariant, 1, price("100.00"))
		require.NoError(t, err)
		_, _, err = userCart.AddLine(driftedVariant, 2, price("500.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{
				stableVariant:  purchasableVariant(stableVariant, "100.00"),
				driftedVariant: purchasableVariant(driftedVariant, "450.00"),
			}, nil).Once()
		cartRepo.On("SaveLine", ctx, mock.AnythingOfType("*cart.CartLine")).Return(nil).Times(2)
		cartRepo.On("Save", ctx, userCart).Return(nil).Once()

		resp, err := service.RefreshPrices(ctx, UserOwner(userID))

		require.NoError(t, err)
		assert.Equal(t, 1, resp.LinesChanged)
		assert.True(t, resp.Cart.Subtotal.Equal(price("1000.00")))
		cartRepo.AssertExpectations(t)
	})

	t.Run("no drift writes nothing", func(t *testing.T) {
		service, cartRepo, catalogPort, _ := newTestService()
		variantID := uuid.New()

		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(variantID, 1, price("100.00"))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).
			Return(map[uuid.UUID]catalog.VariantInfo{variantID: purchasableVariant(variantID, "100.00")}, nil).Once()

		resp, err := service.RefreshPrices(ctx, UserOwner(userID))

		require.NoError(t, err)
		assert.Equal(t, 0, resp.LinesChanged)
		cartRepo.AssertNotCalled(t, "SaveLine", mock.Anything, mock.Anything)
		cartRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCartService_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	service, cartRepo, _, _ := newTestService()

	cartRepo.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()

	swept, err := service.CleanupExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), swept)
}

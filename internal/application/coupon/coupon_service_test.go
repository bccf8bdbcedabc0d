package coupon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/catalog"
	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/ecom/backend/internal/domain/order"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCouponRepository is a mock implementation of CouponRepository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*coupon.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepository) FindByCode(ctx context.Context, code string, includeDeleted bool) (*coupon.Coupon, error) {
	args := m.Called(ctx, code, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepository) FindAll(ctx context.Context, filter shared.Filter) ([]coupon.Coupon, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coupon.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Save(ctx context.Context, c *coupon.Coupon) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCouponRepository) SaveWithLock(ctx context.Context, c *coupon.Coupon) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCouponRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCouponRepository) IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error) {
	args := m.Called(ctx, couponID)
	return args.Bool(0), args.Error(1)
}

// MockUsageRecordRepository is a mock implementation of UsageRecordRepository
type MockUsageRecordRepository struct {
	mock.Mock
}

func (m *MockUsageRecordRepository) Create(ctx context.Context, record *coupon.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsageRecordRepository) FindByCoupon(ctx context.Context, couponID uuid.UUID, filter shared.Filter) ([]coupon.UsageRecord, error) {
	args := m.Called(ctx, couponID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coupon.UsageRecord), args.Error(1)
}

func (m *MockUsageRecordRepository) CountByActor(ctx context.Context, couponID uuid.UUID, actor coupon.Actor) (int64, error) {
	args := m.Called(ctx, couponID, actor)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) CountByCustomerEmail(ctx context.Context, email string) (int64, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(int64), args.Error(1)
}

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

// Helpers

func newTestService() (*CouponService, *MockCouponRepository, *MockUsageRecordRepository, *MockOrderRepository, *MockCartRepository, *MockCatalog) {
	couponRepo := new(MockCouponRepository)
	usageRepo := new(MockUsageRecordRepository)
	orderRepo := new(MockOrderRepository)
	cartRepo := new(MockCartRepository)
	catalogPort := new(MockCatalog)
	service := NewCouponService(couponRepo, usageRepo, orderRepo, cartRepo, catalogPort)
	return service, couponRepo, usageRepo, orderRepo, cartRepo, catalogPort
}

func price(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func intPtr(i int) *int {
	return &i
}

func boolPtr(b bool) *bool {
	return &b
}

func decimalPtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

func activePercentCoupon(t *testing.T, code string, percent int64) *coupon.Coupon {
	t.Helper()
	now := time.Now()
	c, err := coupon.NewCoupon(code, coupon.DiscountTypePercentage, decimal.NewFromInt(percent), now.Add(-time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)
	return c
}

func singleLine(total string) []coupon.LineAmounts {
	return []coupon.LineAmounts{{ProductID: uuid.New(), CategoryID: uuid.New(), LineTotal: price(total)}}
}

func catalogEntry(id uuid.UUID) catalog.VariantInfo {
	return catalog.VariantInfo{
		ID:               id,
		ProductID:        uuid.New(),
		CategoryID:       uuid.New(),
		IsActive:         true,
		ProductPublished: true,
	}
}

// Tests

func TestCouponService_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies a percentage discount to the full subtotal", func(t *testing.T) {
		service, couponRepo, usageRepo, orderRepo, _, _ := newTestService()

		c := activePercentCoupon(t, "SAVE10", 10)
		userID := uuid.New()
		couponRepo.On("FindByCode", ctx, "SAVE10", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, coupon.UserActor(userID)).Return(int64(0), nil).Once()

		eval, err := service.Evaluate(ctx, EvaluateInput{
			Code:  "save10",
			Cart:  CartSnapshot{Subtotal: price("1500.00"), Lines: singleLine("1500.00")},
			Actor: coupon.UserActor(userID),
		})

		require.NoError(t, err)
		assert.True(t, eval.Applicable())
		assert.Empty(t, eval.Reasons)
		assert.True(t, eval.Base.Equal(price("1500.00")), "base = %s", eval.Base)
		assert.True(t, eval.Discount.Equal(price("150.00")), "discount = %s", eval.Discount)
		orderRepo.AssertNotCalled(t, "CountByUser", mock.Anything, mock.Anything)
		couponRepo.AssertExpectations(t)
		usageRepo.AssertExpectations(t)
	})

	t.Run("accumulates every failing reason in check order", func(t *testing.T) {
		service, couponRepo, usageRepo, orderRepo, _, _ := newTestService()

		now := time.Now()
		c, err := coupon.NewCoupon("OLD", coupon.DiscountTypePercentage, decimal.NewFromInt(10), now.Add(-48*time.Hour), now.Add(-24*time.Hour))
		require.NoError(t, err)
		c.IsActive = false
		c.MinimumOrder = decimal.NewFromInt(2000)
		c.FirstOrderOnly = true

		userID := uuid.New()
		couponRepo.On("FindByCode", ctx, "OLD", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, coupon.UserActor(userID)).Return(int64(0), nil).Once()
		orderRepo.On("CountByUser", ctx, userID).Return(int64(3), nil).Once()

		eval, err := service.Evaluate(ctx, EvaluateInput{
			Code:  "OLD",
			Cart:  CartSnapshot{Subtotal: price("1500.00"), Lines: singleLine("1500.00")},
			Actor: coupon.UserActor(userID),
		})

		require.NoError(t, err)
		assert.False(t, eval.Applicable())
		assert.Equal(t, []string{
			"Coupon is not active",
			"Coupon has expired",
			"Minimum order amount of 2000.00 required",
			"Coupon is only valid on a first order",
		}, eval.Reasons)
	})

	t.Run("reports an unknown code as a reason, not an error", func(t *testing.T) {
		service, couponRepo, usageRepo, _, _, _ := newTestService()

		couponRepo.On("FindByCode", ctx, "GHOST", false).Return(nil, shared.ErrNotFound).Once()

		eval, err := service.Evaluate(ctx, EvaluateInput{Code: "ghost "})

		require.NoError(t, err)
		assert.False(t, eval.Applicable())
		assert.Nil(t, eval.Coupon)
		assert.Equal(t, []string{"Coupon code is not valid"}, eval.Reasons)
		usageRepo.AssertNotCalled(t, "CountByActor", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("counts guest redemptions by identifier", func(t *testing.T) {
		service, couponRepo, usageRepo, _, _, _ := newTestService()

		c := activePercentCoupon(t, "ONCE", 10)
		c.UsageLimitPerUser = intPtr(1)
		actor := coupon.GuestActor("jane@example.com")
		couponRepo.On("FindByCode", ctx, "ONCE", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, actor).Return(int64(1), nil).Once()

		eval, err := service.Evaluate(ctx, EvaluateInput{
			Code:  "ONCE",
			Cart:  CartSnapshot{Subtotal: price("500.00"), Lines: singleLine("500.00")},
			Actor: actor,
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"You have reached the usage limit for this coupon"}, eval.Reasons)
		usageRepo.AssertExpectations(t)
	})

	t.Run("restricted coupon discounts only the eligible lines", func(t *testing.T) {
		service, couponRepo, usageRepo, _, _, _ := newTestService()

		c := activePercentCoupon(t, "SHIRTS20", 20)
		productID := uuid.New()
		c.ApplicableProductIDs = coupon.UUIDList{productID}
		actor := coupon.GuestActor("guest-1")
		couponRepo.On("FindByCode", ctx, "SHIRTS20", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, actor).Return(int64(0), nil).Once()

		eval, err := service.Evaluate(ctx, EvaluateInput{
			Code: "SHIRTS20",
			Cart: CartSnapshot{
				Subtotal: price("1000.00"),
				Lines: []coupon.LineAmounts{
					{ProductID: productID, CategoryID: uuid.New(), LineTotal: price("400.00")},
					{ProductID: uuid.New(), CategoryID: uuid.New(), LineTotal: price("600.00")},
				},
			},
			Actor: actor,
		})

		require.NoError(t, err)
		assert.True(t, eval.Applicable())
		assert.True(t, eval.Base.Equal(price("400.00")), "base = %s", eval.Base)
		assert.True(t, eval.Discount.Equal(price("80.00")), "discount = %s", eval.Discount)
	})

	t.Run("rejects an exhausted coupon", func(t *testing.T) {
		service, couponRepo, usageRepo, _, _, _ := newTestService()

		c := activePercentCoupon(t, "SOLDOUT", 10)
		c.UsageLimit = intPtr(5)
		c.TimesUsed = 5
		actor := coupon.GuestActor("guest-2")
		couponRepo.On("FindByCode", ctx, "SOLDOUT", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, actor).Return(int64(0), nil).Once()

		eval, err := service.Evaluate(ctx, EvaluateInput{
			Code:  "SOLDOUT",
			Cart:  CartSnapshot{Subtotal: price("500.00"), Lines: singleLine("500.00")},
			Actor: actor,
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"Coupon usage limit has been reached"}, eval.Reasons)
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		couponRepo.On("FindByCode", ctx, "SAVE10", false).Return(nil, errors.New("connection refused")).Once()

		_, err := service.Evaluate(ctx, EvaluateInput{Code: "SAVE10"})

		assert.Error(t, err)
	})
}

func TestCouponService_ValidateForShopper(t *testing.T) {
	ctx := context.Background()

	t.Run("previews the discount for a user cart", func(t *testing.T) {
		service, couponRepo, usageRepo, _, cartRepo, catalogPort := newTestService()

		userID := uuid.New()
		v1, v2 := uuid.New(), uuid.New()
		userCart, err := cart.NewUserCart(userID)
		require.NoError(t, err)
		_, _, err = userCart.AddLine(v1, 2, price("450.00"))
		require.NoError(t, err)
		_, _, err = userCart.AddLine(v2, 1, price("599.99"))
		require.NoError(t, err)

		now := time.Now()
		c, err := coupon.NewCoupon("TAKA100", coupon.DiscountTypeFixed, decimal.NewFromInt(100), now.Add(-time.Hour), now.Add(24*time.Hour))
		require.NoError(t, err)

		cartRepo.On("FindByUserID", ctx, userID).Return(userCart, nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).Return(map[uuid.UUID]catalog.VariantInfo{
			v1: catalogEntry(v1),
			v2: catalogEntry(v2),
		}, nil).Once()
		couponRepo.On("FindByCode", ctx, "TAKA100", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, coupon.UserActor(userID)).Return(int64(0), nil).Once()

		resp, err := service.ValidateForShopper(ctx, ValidateCouponRequest{Code: "taka100"}, &userID, "")

		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.Empty(t, resp.Reasons)
		require.NotNil(t, resp.Coupon)
		assert.Equal(t, "TAKA100", resp.Coupon.Code)
		require.NotNil(t, resp.Discount)
		assert.True(t, resp.Discount.Amount.Equal(price("100.00")))
		assert.True(t, resp.Discount.SubtotalBefore.Equal(price("1499.99")))
		assert.True(t, resp.Discount.SubtotalAfter.Equal(price("1399.99")))
	})

	t.Run("guest without a cart gets reasons rather than a 404", func(t *testing.T) {
		service, couponRepo, usageRepo, _, cartRepo, catalogPort := newTestService()

		c := activePercentCoupon(t, "WELCOME", 10)
		c.MinimumOrder = decimal.NewFromInt(50)

		cartRepo.On("FindBySessionKey", ctx, "sess-1", mock.AnythingOfType("time.Time")).
			Return(nil, shared.ErrNotFound).Once()
		couponRepo.On("FindByCode", ctx, "WELCOME", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, coupon.GuestActor("sess-1")).Return(int64(0), nil).Once()

		resp, err := service.ValidateForShopper(ctx, ValidateCouponRequest{Code: "WELCOME"}, nil, "sess-1")

		require.NoError(t, err)
		assert.False(t, resp.Valid)
		assert.Contains(t, resp.Reasons, "Minimum order amount of 50.00 required")
		assert.Nil(t, resp.Discount)
		catalogPort.AssertNotCalled(t, "Variants", mock.Anything, mock.Anything)
	})

	t.Run("guest email drives the first-order check", func(t *testing.T) {
		service, couponRepo, usageRepo, orderRepo, cartRepo, catalogPort := newTestService()

		c := activePercentCoupon(t, "FIRST15", 15)
		c.FirstOrderOnly = true

		variantID := uuid.New()
		guestCart, err := cart.NewGuestCart("sess-2", time.Now())
		require.NoError(t, err)
		_, _, err = guestCart.AddLine(variantID, 1, price("899.00"))
		require.NoError(t, err)

		cartRepo.On("FindBySessionKey", ctx, "sess-2", mock.AnythingOfType("time.Time")).
			Return(guestCart, nil).Once()
		catalogPort.On("Variants", ctx, mock.AnythingOfType("[]uuid.UUID")).Return(map[uuid.UUID]catalog.VariantInfo{
			variantID: catalogEntry(variantID),
		}, nil).Once()
		couponRepo.On("FindByCode", ctx, "FIRST15", false).Return(c, nil).Once()
		usageRepo.On("CountByActor", ctx, c.ID, coupon.GuestActor("shopper@example.com")).Return(int64(0), nil).Once()
		orderRepo.On("CountByCustomerEmail", ctx, "shopper@example.com").Return(int64(2), nil).Once()

		resp, err := service.ValidateForShopper(ctx, ValidateCouponRequest{
			Code:  "FIRST15",
			Email: " Shopper@Example.COM ",
		}, nil, "sess-2")

		require.NoError(t, err)
		assert.False(t, resp.Valid)
		assert.Equal(t, []string{"Coupon is only valid on a first order"}, resp.Reasons)
		orderRepo.AssertExpectations(t)
		usageRepo.AssertExpectations(t)
	})
}

func TestCouponService_CreateCoupon(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("creates a coupon with a normalized code", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		couponRepo.On("FindByCode", ctx, "SUMMER10", true).Return(nil, shared.ErrNotFound).Once()
		var saved *coupon.Coupon
		couponRepo.On("Save", ctx, mock.AnythingOfType("*coupon.Coupon")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*coupon.Coupon)
			}).
			Return(nil).Once()

		resp, err := service.CreateCoupon(ctx, CreateCouponRequest{
			Code:              "  summer10 ",
			DiscountType:      "percentage",
			DiscountValue:     decimal.NewFromInt(10),
			MaximumDiscount:   decimalPtr("200.00"),
			UsageLimit:        intPtr(500),
			UsageLimitPerUser: intPtr(1),
			ValidFrom:         now,
			ValidTo:           now.Add(30 * 24 * time.Hour),
			FirstOrderOnly:    true,
		})

		require.NoError(t, err)
		assert.Equal(t, "SUMMER10", resp.Code)
		assert.True(t, resp.IsActive)
		require.NotNil(t, saved)
		assert.Equal(t, "SUMMER10", saved.Code)
		assert.True(t, saved.FirstOrderOnly)
		require.NotNil(t, saved.MaximumDiscount)
		assert.True(t, saved.MaximumDiscount.Equal(price("200.00")))
		require.NotNil(t, saved.UsageLimit)
		assert.Equal(t, 500, *saved.UsageLimit)
	})

	t.Run("rejects a duplicate code even when soft-deleted", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		existing := activePercentCoupon(t, "SUMMER10", 10)
		deletedAt := now.Add(-time.Hour)
		existing.DeletedAt = &deletedAt
		couponRepo.On("FindByCode", ctx, "SUMMER10", true).Return(existing, nil).Once()

		_, err := service.CreateCoupon(ctx, CreateCouponRequest{
			Code:          "SUMMER10",
			DiscountType:  "percentage",
			DiscountValue: decimal.NewFromInt(10),
			ValidFrom:     now,
			ValidTo:       now.Add(24 * time.Hour),
		})

		assert.True(t, shared.IsCode(err, shared.CodeAlreadyExists), "got %v", err)
		couponRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects a maximum discount on fixed coupons", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		couponRepo.On("FindByCode", ctx, "FLAT50", true).Return(nil, shared.ErrNotFound).Once()

		_, err := service.CreateCoupon(ctx, CreateCouponRequest{
			Code:            "FLAT50",
			DiscountType:    "fixed",
			DiscountValue:   decimal.NewFromInt(50),
			MaximumDiscount: decimalPtr("100.00"),
			ValidFrom:       now,
			ValidTo:         now.Add(24 * time.Hour),
		})

		assert.True(t, shared.IsCode(err, shared.CodeValidation), "got %v", err)
		couponRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects an inverted validity window", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		_, err := service.CreateCoupon(ctx, CreateCouponRequest{
			Code:          "BACKWARDS",
			DiscountType:  "percentage",
			DiscountValue: decimal.NewFromInt(10),
			ValidFrom:     now,
			ValidTo:       now.Add(-24 * time.Hour),
		})

		assert.True(t, shared.IsCode(err, shared.CodeValidation), "got %v", err)
		couponRepo.AssertNotCalled(t, "FindByCode", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCouponService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivates an active coupon", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		c := activePercentCoupon(t, "PAUSE", 10)
		couponRepo.On("FindByID", ctx, c.ID).Return(c, nil).Once()
		var saved *coupon.Coupon
		couponRepo.On("SaveWithLock", ctx, mock.AnythingOfType("*coupon.Coupon")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*coupon.Coupon)
			}).
			Return(nil).Once()

		resp, err := service.DeactivateCoupon(ctx, c.ID)

		require.NoError(t, err)
		assert.False(t, resp.IsActive)
		require.NotNil(t, saved)
		assert.False(t, saved.IsActive)
	})

	t.Run("activates an inactive coupon", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		c := activePercentCoupon(t, "RESUME", 10)
		c.IsActive = false
		couponRepo.On("FindByID", ctx, c.ID).Return(c, nil).Once()
		couponRepo.On("SaveWithLock", ctx, mock.AnythingOfType("*coupon.Coupon")).Return(nil).Once()

		resp, err := service.ActivateCoupon(ctx, c.ID)

		require.NoError(t, err)
		assert.True(t, resp.IsActive)
	})

	t.Run("refuses to activate a deleted coupon", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		c := activePercentCoupon(t, "GONE", 10)
		deletedAt := time.Now()
		c.DeletedAt = &deletedAt
		couponRepo.On("FindByID", ctx, c.ID).Return(c, nil).Once()

		_, err := service.ActivateCoupon(ctx, c.ID)

		assert.True(t, shared.IsCode(err, shared.CodeInvalidOperation), "got %v", err)
		couponRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestCouponService_DeleteCoupon(t *testing.T) {
	ctx := context.Background()

	t.Run("soft-deletes and keeps the row", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		c := activePercentCoupon(t, "RETIRED", 10)
		couponRepo.On("FindByID", ctx, c.ID).Return(c, nil).Once()
		var saved *coupon.Coupon
		couponRepo.On("SaveWithLock", ctx, mock.AnythingOfType("*coupon.Coupon")).
			Run(func(args mock.Arguments) {
				saved = args.Get(1).(*coupon.Coupon)
			}).
			Return(nil).Once()

		err := service.DeleteCoupon(ctx, c.ID)

		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.NotNil(t, saved.DeletedAt)
	})

	t.Run("deleting twice is a no-op", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		c := activePercentCoupon(t, "RETIRED", 10)
		deletedAt := time.Now()
		c.DeletedAt = &deletedAt
		couponRepo.On("FindByID", ctx, c.ID).Return(c, nil).Once()

		err := service.DeleteCoupon(ctx, c.ID)

		require.NoError(t, err)
		couponRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestCouponService_ListCoupons(t *testing.T) {
	ctx := context.Background()

	t.Run("maps filters into the repository query", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		c1 := activePercentCoupon(t, "SUMMER10", 10)
		c2 := activePercentCoupon(t, "SUMMER20", 20)
		couponRepo.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Page == 2 && f.PageSize == 10 && f.Search == "SUMMER" &&
				f.Filters["is_active"] == true && f.Filters["include_deleted"] == true
		})).Return([]coupon.Coupon{*c1, *c2}, nil).Once()
		couponRepo.On("Count", ctx, mock.AnythingOfType("shared.Filter")).Return(int64(12), nil).Once()

		responses, total, err := service.ListCoupons(ctx, CouponListFilter{
			IsActive:       boolPtr(true),
			Search:         "SUMMER",
			IncludeDeleted: true,
			Page:           2,
			PageSize:       10,
		})

		require.NoError(t, err)
		assert.Len(t, responses, 2)
		assert.Equal(t, int64(12), total)
		couponRepo.AssertExpectations(t)
	})

	t.Run("defaults pagination", func(t *testing.T) {
		service, couponRepo, _, _, _, _ := newTestService()

		couponRepo.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
			return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "created_at" && f.OrderDir == "desc"
		})).Return([]coupon.Coupon{}, nil).Once()
		couponRepo.On("Count", ctx, mock.AnythingOfType("shared.Filter")).Return(int64(0), nil).Once()

		_, _, err := service.ListCoupons(ctx, CouponListFilter{})

		require.NoError(t, err)
	})
}

func TestCouponService_GetCouponUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("lists redemptions for a coupon", func(t *testing.T) {
		service, couponRepo, usageRepo, _, _, _ := newTestService()

		c := activePercentCoupon(t, "SAVE10", 10)
		couponRepo.On("FindByID", ctx, c.ID).Return(c, nil).Once()
		record := coupon.NewUsageRecord(c.ID, uuid.New(), price("150.00"), time.Now())
		usageRepo.On("FindByCoupon", ctx, c.ID, mock.MatchedBy(func(f shared.Filter) bool {
			return f.OrderBy == "used_at" && f.OrderDir == "desc"
		})).Return([]coupon.UsageRecord{*record}, nil).Once()

		responses, err := service.GetCouponUsage(ctx, c.ID, 0, 0)

		require.NoError(t, err)
		require.Len(t, responses, 1)
		assert.Equal(t, c.ID, responses[0].CouponID)
		assert.True(t, responses[0].DiscountAmount.Equal(price("150.00")))
	})

	t.Run("unknown coupon is an error", func(t *testing.T) {
		service, couponRepo, usageRepo, _, _, _ := newTestService()

		id := uuid.New()
		couponRepo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound).Once()

		_, err := service.GetCouponUsage(ctx, id, 0, 0)

		assert.Error(t, err)
		usageRepo.AssertNotCalled(t, "FindByCoupon", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSnapshotFromCart(t *testing.T) {
	userID := uuid.New()
	c, err := cart.NewUserCart(userID)
	require.NoError(t, err)
	v1, v2 := uuid.New(), uuid.New()
	_, _, err = c.AddLine(v1, 2, price("450.00"))
	require.NoError(t, err)
	_, _, err = c.AddLine(v2, 1, price("599.99"))
	require.NoError(t, err)

	info := catalogEntry(v1)
	snap := SnapshotFromCart(c, map[uuid.UUID]catalog.VariantInfo{v1: info})

	// The vanished variant still counts toward the subtotal but produces no
	// eligibility line.
	assert.True(t, snap.Subtotal.Equal(price("1499.99")), "subtotal = %s", snap.Subtotal)
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, info.ProductID, snap.Lines[0].ProductID)
	assert.Equal(t, info.CategoryID, snap.Lines[0].CategoryID)
	assert.True(t, snap.Lines[0].LineTotal.Equal(price("900.00")))
}

package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	cartapp "github.com/ecom/backend/internal/application/cart"
	couponapp "github.com/ecom/backend/internal/application/coupon"
	invapp "github.com/ecom/backend/internal/application/inventory"
	orderapp "github.com/ecom/backend/internal/application/order"
	pricingapp "github.com/ecom/backend/internal/application/pricing"
	"github.com/ecom/backend/internal/infrastructure/persistence"
)

// storefrontEnv wires the full service stack against one test database, the
// same way the server composition root does.
type storefrontEnv struct {
	tdb *TestDB

	carts     *cartapp.CartService
	orders    *orderapp.OrderService
	coupons   *couponapp.CouponService
	inventory *invapp.InventoryService
	pricing   *pricingapp.PricingService
}

func newStorefrontEnv(t *testing.T) *storefrontEnv {
	t.Helper()

	tdb := NewTestDB(t)
	db := tdb.DB

	cartRepo := persistence.NewGormCartRepository(db)
	catalogReader := persistence.NewGormCatalogReader(db)
	stockRepo := persistence.NewGormStockUnitRepository(db)
	logRepo := persistence.NewGormInventoryLogRepository(db)
	couponRepo := persistence.NewGormCouponRepository(db)
	usageRepo := persistence.NewGormUsageRecordRepository(db)
	orderRepo := persistence.NewGormOrderRepository(db)
	statusLogRepo := persistence.NewGormStatusLogRepository(db)
	paymentRepo := persistence.NewGormPaymentTransactionRepository(db)
	returnRepo := persistence.NewGormReturnRequestRepository(db)
	zoneRepo := persistence.NewGormShippingZoneRepository(db)
	taxRepo := persistence.NewGormTaxRuleRepository(db)

	orderScope := persistence.NewGormOrderTransactionScope(db)
	inventoryScope := persistence.NewGormInventoryTransactionScope(db)

	return &storefrontEnv{
		tdb:   tdb,
		carts: cartapp.NewCartService(cartRepo, catalogReader, stockRepo),
		orders: orderapp.NewOrderService(
			orderScope,
			orderRepo, statusLogRepo, paymentRepo, returnRepo,
			cartRepo, zoneRepo, taxRepo, catalogReader,
			nil,
		),
		coupons:   couponapp.NewCouponService(couponRepo, usageRepo, orderRepo, cartRepo, catalogReader),
		inventory: invapp.NewInventoryService(inventoryScope, stockRepo, logRepo),
		pricing:   pricingapp.NewPricingService(zoneRepo, taxRepo),
	}
}

// seedVariantWithStock puts a purchasable variant in the catalog projection
// and gives it a tracked stock unit.
func (e *storefrontEnv) seedVariantWithStock(t *testing.T, price decimal.Decimal, quantity int) uuid.UUID {
	t.Helper()

	variantID := uuid.New()
	e.tdb.SeedVariant(variantID, "Test Product", price)

	_, err := e.inventory.UpsertStockUnit(context.Background(), invapp.UpsertStockUnitRequest{
		VariantID:      variantID,
		QuantityOnHand: intPtr(quantity),
	})
	require.NoError(t, err, "Failed to seed stock unit")

	return variantID
}

// seedZone creates an active shipping zone covering the given area
func (e *storefrontEnv) seedZone(t *testing.T, area string, cost decimal.Decimal) {
	t.Helper()

	_, err := e.pricing.CreateZone(context.Background(), pricingapp.CreateShippingZoneRequest{
		Name:          "Zone " + area,
		Areas:         []string{area},
		ShippingCost:  cost,
		EstimatedDays: 3,
	})
	require.NoError(t, err, "Failed to seed shipping zone")
}

// seedPercentageTax creates an active percentage tax rule
func (e *storefrontEnv) seedPercentageTax(t *testing.T, rate decimal.Decimal) {
	t.Helper()

	_, err := e.pricing.CreateTaxRule(context.Background(), pricingapp.CreateTaxRuleRequest{
		Name:     "VAT",
		RuleType: "percentage",
		Rate:     rate,
	})
	require.NoError(t, err, "Failed to seed tax rule")
}

// addToCart puts a quantity of the variant into the owner's cart
func (e *storefrontEnv) addToCart(t *testing.T, owner cartapp.CartOwner, variantID uuid.UUID, quantity int) {
	t.Helper()

	_, err := e.carts.AddItem(context.Background(), owner, cartapp.AddItemRequest{
		VariantID: variantID,
		Quantity:  quantity,
	})
	require.NoError(t, err, "Failed to add item to cart")
}

// stockOnHand reads the current quantity for a variant
func (e *storefrontEnv) stockOnHand(t *testing.T, variantID uuid.UUID) int {
	t.Helper()

	unit, err := e.inventory.GetStockUnit(context.Background(), variantID)
	require.NoError(t, err, "Failed to read stock unit")
	return unit.QuantityOnHand
}

// ledgerEntries returns the variant's movement log filtered by change type
func (e *storefrontEnv) ledgerEntries(t *testing.T, variantID uuid.UUID, changeType string) []invapp.LedgerEntryResponse {
	t.Helper()

	entries, _, err := e.inventory.GetLedger(context.Background(), variantID, invapp.LedgerQuery{
		ChangeType: changeType,
	})
	require.NoError(t, err, "Failed to read inventory ledger")
	return entries
}

// pricingZoneWithThreshold builds a zone request with a free-shipping cutoff
func pricingZoneWithThreshold(area string, cost, threshold decimal.Decimal) pricingapp.CreateShippingZoneRequest {
	return pricingapp.CreateShippingZoneRequest{
		Name:                  "Zone " + area,
		Areas:                 []string{area},
		ShippingCost:          cost,
		FreeShippingThreshold: &threshold,
		EstimatedDays:         3,
	}
}

// checkoutRequest builds a minimal valid cash-on-delivery checkout
func checkoutRequest(area string) orderapp.CheckoutRequest {
	return orderapp.CheckoutRequest{
		CustomerName:    "Ayesha Rahman",
		CustomerEmail:   "ayesha@example.com",
		CustomerPhone:   "+8801712345678",
		ShippingAddress: "House 12, Road 5, Dhanmondi",
		ShippingArea:    area,
		PaymentMethod:   "cod",
	}
}

func intPtr(v int) *int {
	return &v
}

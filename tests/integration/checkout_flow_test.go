// Package integration exercises the checkout pipeline end to end against a
// real PostgreSQL instance: cart to order conversion, stock deduction under
// row locks, idempotent retries and price-drift confirmation.
package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/ecom/backend/internal/application/cart"
	orderapp "github.com/ecom/backend/internal/application/order"
	"github.com/ecom/backend/internal/domain/cart"
)

func TestCheckout_GuestHappyPath(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	ctx := context.Background()

	variantID := env.seedVariantWithStock(t, decimal.NewFromInt(100), 5)
	env.seedZone(t, "dhaka", decimal.NewFromInt(10))
	env.seedPercentageTax(t, decimal.NewFromInt(10))

	owner := cartapp.GuestOwner("guest-session-1")
	env.addToCart(t, owner, variantID, 2)

	resp, err := env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, "guest-session-1", "")
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-\d{4}-\d{5}$`, resp.OrderNumber)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "pending", resp.PaymentStatus)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal = %s", resp.Subtotal)
	assert.True(t, resp.ShippingCost.Equal(decimal.NewFromInt(10)), "shipping = %s", resp.ShippingCost)
	assert.True(t, resp.TaxAmount.Equal(decimal.NewFromInt(20)), "tax = %s", resp.TaxAmount)
	assert.True(t, resp.DiscountAmount.IsZero())
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(230)), "total = %s", resp.Total)
	assert.True(t, resp.ShippingZoneExactMatch, "the zone lists dhaka")

	// Stock moved and the movement is on the ledger, referenced by order number
	assert.Equal(t, 3, env.stockOnHand(t, variantID))
	sold := env.ledgerEntries(t, variantID, "sold")
	require.Len(t, sold, 1)
	assert.Equal(t, resp.OrderNumber, sold[0].Reference)

	// The cart was consumed
	cartResp, err := env.carts.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cartResp.Lines)
}

func TestCheckout_FallbackZoneIsFlagged(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	ctx := context.Background()

	variantID := env.seedVariantWithStock(t, decimal.NewFromInt(100), 5)
	env.seedZone(t, "dhaka", decimal.NewFromInt(10))

	env.addToCart(t, cartapp.GuestOwner("far-away"), variantID, 1)

	resp, err := env.orders.Checkout(ctx, checkoutRequest("sylhet"), nil, "far-away", "")
	require.NoError(t, err)

	// No zone lists sylhet; the fallback zone prices the order and the
	// response says the area was not matched exactly.
	assert.False(t, resp.ShippingZoneExactMatch)
	assert.True(t, resp.ShippingCost.Equal(decimal.NewFromInt(10)), "shipping = %s", resp.ShippingCost)
}

func TestCheckout_EmptyCartBlocked(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	env.seedZone(t, "dhaka", decimal.NewFromInt(10))

	_, err := env.orders.Checkout(context.Background(), checkoutRequest("dhaka"), nil, "nobody-here", "")

	var blocked *orderapp.CheckoutBlockedError
	require.ErrorAs(t, err, &blocked)
	require.Len(t, blocked.Issues, 1)
	assert.Equal(t, cart.IssueEmptyCart, blocked.Issues[0].Code)
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	ctx := context.Background()

	variantID := env.seedVariantWithStock(t, decimal.NewFromInt(50), 10)
	env.seedZone(t, "dhaka", decimal.NewFromInt(10))

	owner := cartapp.GuestOwner("retry-session")
	env.addToCart(t, owner, variantID, 1)

	first, err := env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, "retry-session", "retry-key-1")
	require.NoError(t, err)

	// A retry with the same key returns the first order and moves no stock,
	// even though the cart is now empty.
	second, err := env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, "retry-session", "retry-key-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, 9, env.stockOnHand(t, variantID))
}

func TestCheckout_LastUnitSequential(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	ctx := context.Background()

	variantID := env.seedVariantWithStock(t, decimal.NewFromInt(75), 1)
	env.seedZone(t, "dhaka", decimal.NewFromInt(10))

	// Both guests get the advisory nod while the unit is still on hand
	env.addToCart(t, cartapp.GuestOwner("guest-a"), variantID, 1)
	env.addToCart(t, cartapp.GuestOwner("guest-b"), variantID, 1)

	_, err := env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, "guest-a", "")
	require.NoError(t, err)

	_, err = env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, "guest-b", "")
	var blocked *orderapp.CheckoutBlockedError
	require.ErrorAs(t, err, &blocked)
	require.NotEmpty(t, blocked.Issues)
	assert.Equal(t, cart.IssueInsufficientStock, blocked.Issues[0].Code)

	assert.Equal(t, 0, env.stockOnHand(t, variantID))
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	ctx := context.Background()

	variantID := env.seedVariantWithStock(t, decimal.NewFromInt(75), 1)
	env.seedZone(t, "dhaka", decimal.NewFromInt(10))

	sessions := []string{"racer-a", "racer-b"}
	for _, s := range sessions {
		env.addToCart(t, cartapp.GuestOwner(s), variantID, 1)
	}

	var wg sync.WaitGroup
	results := make([]error, len(sessions))
	for i, s := range sessions {
		wg.Add(1)
		go func(i int, session string) {
			defer wg.Done()
			_, results[i] = env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, session, "")
		}(i, s)
	}
	wg.Wait()

	// Exactly one checkout wins the last unit; the loser is blocked, not
	// silently oversold.
	var succeeded, blockedCount int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var blocked *orderapp.CheckoutBlockedError
		if errors.As(err, &blocked) {
			blockedCount++
		} else {
			t.Fatalf("Unexpected checkout error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, blockedCount)
	assert.Equal(t, 0, env.stockOnHand(t, variantID))
}

func TestCheckout_PriceDriftNeedsConfirmation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	ctx := context.Background()

	variantID := env.seedVariantWithStock(t, decimal.NewFromInt(100), 10)
	env.seedZone(t, "dhaka", decimal.NewFromInt(10))

	owner := cartapp.GuestOwner("drift-session")
	env.addToCart(t, owner, variantID, 2)

	// Catalog price moves 20% after the snapshot was taken
	env.tdb.SetVariantPrice(variantID, decimal.NewFromInt(120))

	_, err := env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, "drift-session", "")
	var blocked *orderapp.CheckoutBlockedError
	require.ErrorAs(t, err, &blocked)
	require.NotEmpty(t, blocked.Issues)
	assert.Equal(t, cart.IssuePriceDrift, blocked.Issues[0].Code)
	assert.Equal(t, cart.SeverityWarning, blocked.Issues[0].Severity)

	// Nothing moved while the shopper was being asked
	assert.Equal(t, 10, env.stockOnHand(t, variantID))

	// Acknowledging the drift re-prices the lines at the live price
	req := checkoutRequest("dhaka")
	req.ConfirmPriceChanges = true
	resp, err := env.orders.Checkout(ctx, req, nil, "drift-session", "")
	require.NoError(t, err)

	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(240)), "subtotal = %s", resp.Subtotal)
	assert.Equal(t, 8, env.stockOnHand(t, variantID))
}

func TestCheckout_FreeShippingThreshold(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := newStorefrontEnv(t)
	ctx := context.Background()

	variantID := env.seedVariantWithStock(t, decimal.NewFromInt(600), 5)

	threshold := decimal.NewFromInt(500)
	_, err := env.pricing.CreateZone(ctx, pricingZoneWithThreshold("dhaka", decimal.NewFromInt(60), threshold))
	require.NoError(t, err)

	owner := cartapp.GuestOwner("big-spender")
	env.addToCart(t, owner, variantID, 1)

	resp, err := env.orders.Checkout(ctx, checkoutRequest("dhaka"), nil, "big-spender", "")
	require.NoError(t, err)

	assert.True(t, resp.ShippingCost.IsZero(), "shipping = %s", resp.ShippingCost)
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(600)), "total = %s", resp.Total)
}

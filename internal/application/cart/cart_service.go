package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/catalog"
	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartService handles shopping cart operations for users and guest sessions.
// Stock answers here are advisory; the authoritative check happens under row
// locks inside the checkout transaction.
type CartService struct {
	cartRepo   cart.CartRepository
	catalog    catalog.Catalog
	stockUnits inventory.StockUnitRepository
}

// NewCartService creates a new CartService
func NewCartService(
	cartRepo cart.CartRepository,
	catalogPort catalog.Catalog,
	stockUnits inventory.StockUnitRepository,
) *CartService {
	return &CartService{
		cartRepo:   cartRepo,
		catalog:    catalogPort,
		stockUnits: stockUnits,
	}
}

// GetCart returns the owner's cart, creating an empty one on first access.
// Guest carts close to expiry get a fresh window as a side effect.
func (s *CartService) GetCart(ctx context.Context, owner CartOwner) (*CartResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, c)
}

// AddItem puts a variant in the cart or bumps the existing line. The
// availability gate runs against the merged total, not just the increment, so
// re-adding cannot creep past the on-hand quantity unnoticed.
func (s *CartService) AddItem(ctx context.Context, owner CartOwner, req AddItemRequest) (*CartResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	info, err := s.catalog.Variant(ctx, req.VariantID)
	if err != nil {
		return nil, err
	}
	if !info.Purchasable() {
		return nil, shared.NewValidationError("Variant is not available for purchase")
	}

	newTotal := req.Quantity
	if existing := c.LineForVariant(req.VariantID); existing != nil {
		newTotal += existing.Quantity
	}
	if err := s.checkStock(ctx, req.VariantID, newTotal); err != nil {
		return nil, err
	}

	line, _, err := c.AddLine(req.VariantID, req.Quantity, info.Price)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.SaveLine(ctx, line); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c)
}

// UpdateItem sets a line's quantity and refreshes its price snapshot. A line
// whose variant has left the catalog keeps its stale snapshot; checkout
// validation flags it separately.
func (s *CartService) UpdateItem(ctx context.Context, owner CartOwner, lineID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	line := c.LineByID(lineID)
	if line == nil {
		return nil, shared.ErrNotFound
	}

	price := line.UnitPriceSnapshot
	info, err := s.catalog.Variant(ctx, line.VariantID)
	switch {
	case err == nil:
		price = info.Price
	case errors.Is(err, shared.ErrNotFound):
		// keep the snapshot
	default:
		return nil, err
	}

	if err := s.checkStock(ctx, line.VariantID, req.Quantity); err != nil {
		return nil, err
	}

	updated, err := c.UpdateLine(lineID, req.Quantity, price)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.SaveLine(ctx, updated); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c)
}

// RemoveItem deletes a line from the cart
func (s *CartService) RemoveItem(ctx context.Context, owner CartOwner, lineID uuid.UUID) (*CartResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := c.RemoveLine(lineID); err != nil {
		return nil, err
	}

	if err := s.cartRepo.DeleteLine(ctx, lineID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c)
}

// ClearCart removes every line, keeping the cart row
func (s *CartService) ClearCart(ctx context.Context, owner CartOwner) (*CartResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	c.Clear()

	if err := s.cartRepo.ClearLines(ctx, c.ID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.respond(ctx, c)
}

// MergeCarts folds the guest session's cart into the authenticated user's cart
// at login. Lines merge by the higher quantity, never the sum, so repeated
// login cycles cannot inflate the cart. Raising a quantity (or moving a line
// over) must clear the advisory stock gate; a guest line that cannot be
// satisfied is silently kept at the user's current quantity. The guest cart is
// deleted whether or not it contributed anything.
func (s *CartService) MergeCarts(ctx context.Context, userID uuid.UUID, sessionKey string) (*CartResponse, error) {
	if sessionKey == "" {
		return nil, shared.NewValidationError("Session key cannot be empty")
	}

	userCart, err := s.getOrCreate(ctx, UserOwner(userID))
	if err != nil {
		return nil, err
	}

	guestCart, err := s.cartRepo.FindBySessionKey(ctx, sessionKey, time.Now())
	if errors.Is(err, shared.ErrNotFound) {
		return s.respond(ctx, userCart)
	}
	if err != nil {
		return nil, err
	}

	variants, err := s.variantContext(ctx, guestCart)
	if err != nil {
		return nil, err
	}

	for i := range guestCart.Lines {
		guestLine := &guestCart.Lines[i]

		if existing := userCart.LineForVariant(guestLine.VariantID); existing != nil && guestLine.Quantity <= existing.Quantity {
			continue
		}
		available, err := s.stockAllows(ctx, guestLine.VariantID, guestLine.Quantity)
		if err != nil {
			return nil, err
		}
		if !available {
			continue
		}

		// Raised and moved lines re-snapshot at the live catalog price; a
		// vanished variant keeps the guest's snapshot.
		price := guestLine.UnitPriceSnapshot
		if info, ok := variants[guestLine.VariantID]; ok {
			price = info.Price
		}
		if _, err := userCart.MergeLine(guestLine.VariantID, guestLine.Quantity, price); err != nil {
			return nil, err
		}
	}

	for i := range userCart.Lines {
		if err := s.cartRepo.SaveLine(ctx, &userCart.Lines[i]); err != nil {
			return nil, err
		}
	}
	if err := s.cartRepo.Save(ctx, userCart); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Delete(ctx, guestCart.ID); err != nil {
		return nil, err
	}

	return s.respond(ctx, userCart)
}

// ValidateForCheckout checks the cart against the live catalog and stock and
// returns every issue at once
func (s *CartService) ValidateForCheckout(ctx context.Context, owner CartOwner) (*ValidationResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	variants, err := s.variantContext(ctx, c)
	if err != nil {
		return nil, err
	}
	stocks, err := s.stockContext(ctx, c)
	if err != nil {
		return nil, err
	}

	issues := ComputeIssues(c, variants, stocks)
	return &ValidationResponse{
		Valid:  !cart.HasBlocking(issues),
		Issues: issues,
	}, nil
}

// RefreshPrices re-snapshots every line from the live catalog. Lines whose
// variant has vanished keep the old snapshot.
func (s *CartService) RefreshPrices(ctx context.Context, owner CartOwner) (*RefreshPricesResponse, error) {
	c, err := s.getOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	variants, err := s.variantContext(ctx, c)
	if err != nil {
		return nil, err
	}

	prices := make(map[uuid.UUID]decimal.Decimal, len(variants))
	for id, info := range variants {
		prices[id] = info.Price
	}

	changed := c.RefreshLinePrices(prices)
	if changed > 0 {
		for i := range c.Lines {
			if err := s.cartRepo.SaveLine(ctx, &c.Lines[i]); err != nil {
				return nil, err
			}
		}
		if err := s.cartRepo.Save(ctx, c); err != nil {
			return nil, err
		}
	}

	return &RefreshPricesResponse{
		Cart:         ToCartResponse(c, variants),
		LinesChanged: changed,
	}, nil
}

// CleanupExpired deletes guest carts past their expiry and reports how many
// were swept. Invoked by the background scheduler.
func (s *CartService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.cartRepo.DeleteExpired(ctx, time.Now())
}

// ComputeIssues lists everything standing between a cart and checkout, given
// live catalog and stock context. All problems are collected so the shopper
// sees every reason at once. Price drift past the threshold is a warning the
// shopper can confirm past; the rest block.
func ComputeIssues(c *cart.Cart, variants map[uuid.UUID]catalog.VariantInfo, stocks map[uuid.UUID]*inventory.StockUnit) []cart.Issue {
	issues := make([]cart.Issue, 0)

	if c.IsEmpty() {
		issues = append(issues, cart.Issue{
			Code:     cart.IssueEmptyCart,
			Severity: cart.SeverityError,
			Message:  "Cart is empty",
		})
		return issues
	}

	for i := range c.Lines {
		line := &c.Lines[i]

		info, known := variants[line.VariantID]
		if !known || !info.Purchasable() {
			issues = append(issues, cart.Issue{
				LineID:    line.ID,
				VariantID: line.VariantID,
				Code:      cart.IssueVariantUnavailable,
				Severity:  cart.SeverityError,
				Message:   "Product is no longer available",
			})
			continue
		}

		if unit, ok := stocks[line.VariantID]; ok && !unit.CanSatisfy(line.Quantity) {
			issues = append(issues, cart.Issue{
				LineID:    line.ID,
				VariantID: line.VariantID,
				Code:      cart.IssueInsufficientStock,
				Severity:  cart.SeverityError,
				Message:   fmt.Sprintf("Only %d in stock", unit.QuantityOnHand),
			})
		}

		if cart.PriceDrifted(line.UnitPriceSnapshot, info.Price) {
			issues = append(issues, cart.Issue{
				LineID:    line.ID,
				VariantID: line.VariantID,
				Code:      cart.IssuePriceDrift,
				Severity:  cart.SeverityWarning,
				Message: fmt.Sprintf("Price changed from %s to %s",
					line.UnitPriceSnapshot.StringFixed(2), info.Price.StringFixed(2)),
				OldPrice: line.UnitPriceSnapshot,
				NewPrice: info.Price,
			})
		}
	}

	return issues
}

// getOrCreate resolves the owner's cart, creating one on first access and
// refreshing a guest cart's expiry when it is inside the refresh window.
func (s *CartService) getOrCreate(ctx context.Context, owner CartOwner) (*cart.Cart, error) {
	now := time.Now()

	if owner.UserID != nil {
		existing, err := s.cartRepo.FindByUserID(ctx, *owner.UserID)
		switch {
		case err == nil:
			return existing, nil
		case errors.Is(err, shared.ErrNotFound):
			created, err := cart.NewUserCart(*owner.UserID)
			if err != nil {
				return nil, err
			}
			if err := s.cartRepo.Save(ctx, created); err != nil {
				return nil, err
			}
			return created, nil
		default:
			return nil, err
		}
	}

	if owner.SessionKey == "" {
		return nil, shared.NewValidationError("Cart owner requires a user or a session key")
	}

	existing, err := s.cartRepo.FindBySessionKey(ctx, owner.SessionKey, now)
	switch {
	case err == nil:
		if existing.NeedsExpiryRefresh(now) {
			existing.RefreshExpiry(now)
			if err := s.cartRepo.Save(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	case errors.Is(err, shared.ErrNotFound):
		created, err := cart.NewGuestCart(owner.SessionKey, now)
		if err != nil {
			return nil, err
		}
		if err := s.cartRepo.Save(ctx, created); err != nil {
			return nil, err
		}
		return created, nil
	default:
		return nil, err
	}
}

// variantContext batch-loads catalog info for every line in the cart
func (s *CartService) variantContext(ctx context.Context, c *cart.Cart) (map[uuid.UUID]catalog.VariantInfo, error) {
	if len(c.Lines) == 0 {
		return map[uuid.UUID]catalog.VariantInfo{}, nil
	}
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for i := range c.Lines {
		ids = append(ids, c.Lines[i].VariantID)
	}
	return s.catalog.Variants(ctx, ids)
}

// stockContext batch-loads stock units for every line in the cart
func (s *CartService) stockContext(ctx context.Context, c *cart.Cart) (map[uuid.UUID]*inventory.StockUnit, error) {
	if len(c.Lines) == 0 {
		return map[uuid.UUID]*inventory.StockUnit{}, nil
	}
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for i := range c.Lines {
		ids = append(ids, c.Lines[i].VariantID)
	}
	units, err := s.stockUnits.FindByVariantIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byVariant := make(map[uuid.UUID]*inventory.StockUnit, len(units))
	for i := range units {
		byVariant[units[i].VariantID] = &units[i]
	}
	return byVariant, nil
}

// checkStock is the advisory availability gate for cart mutations. Variants
// without a stock unit are treated as untracked.
func (s *CartService) checkStock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	unit, err := s.stockUnits.FindByVariantID(ctx, variantID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !unit.CanSatisfy(quantity) {
		return shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient stock: only %d available", unit.QuantityOnHand))
	}
	return nil
}

// stockAllows is the boolean form of the advisory gate, for paths that keep
// going instead of erroring. Variants without a stock unit are untracked.
func (s *CartService) stockAllows(ctx context.Context, variantID uuid.UUID, quantity int) (bool, error) {
	unit, err := s.stockUnits.FindByVariantID(ctx, variantID)
	if errors.Is(err, shared.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return unit.CanSatisfy(quantity), nil
}

// respond assembles the response DTO with live catalog context
func (s *CartService) respond(ctx context.Context, c *cart.Cart) (*CartResponse, error) {
	variants, err := s.variantContext(ctx, c)
	if err != nil {
		return nil, err
	}
	resp := ToCartResponse(c, variants)
	return &resp, nil
}

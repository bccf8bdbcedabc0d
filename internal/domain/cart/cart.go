package cart

import (
	"time"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// GuestCartTTL is how long a guest cart lives from creation or refresh
	GuestCartTTL = 30 * 24 * time.Hour
	// GuestCartRefreshWindow triggers a fresh TTL when a guest cart is
	// accessed with less than this much time remaining
	GuestCartRefreshWindow = 7 * 24 * time.Hour
)

// Cart is the mutable pre-order basket. A cart belongs to exactly one owner:
// either an authenticated user or an anonymous session, never both. User
// carts live forever and are emptied after checkout; guest carts expire and
// are removed by the background sweep.
type Cart struct {
	shared.BaseAggregateRoot
	UserID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_carts_user"`
	SessionKey string     `gorm:"type:varchar(64);uniqueIndex:idx_carts_session,where:session_key <> ''"`
	ExpiresAt  *time.Time `gorm:"type:timestamptz;index:idx_carts_expires"`

	Lines []CartLine `gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the table name for GORM
func (Cart) TableName() string {
	return "carts"
}

// NewUserCart creates a cart owned by an authenticated user
func NewUserCart(userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("User ID cannot be empty")
	}
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            &userID,
		Lines:             make([]CartLine, 0),
	}, nil
}

// NewGuestCart creates a session-owned cart expiring GuestCartTTL from now
func NewGuestCart(sessionKey string, now time.Time) (*Cart, error) {
	if sessionKey == "" {
		return nil, shared.NewValidationError("Session key cannot be empty")
	}
	expires := now.Add(GuestCartTTL)
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SessionKey:        sessionKey,
		ExpiresAt:         &expires,
		Lines:             make([]CartLine, 0),
	}, nil
}

// IsGuest returns true for session-owned carts
func (c *Cart) IsGuest() bool {
	return c.UserID == nil
}

// IsExpired returns true once a guest cart's window has passed
func (c *Cart) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// NeedsExpiryRefresh returns true when a guest cart is accessed with fewer
// than GuestCartRefreshWindow remaining
func (c *Cart) NeedsExpiryRefresh(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Sub(now) < GuestCartRefreshWindow
}

// RefreshExpiry resets a guest cart to a fresh GuestCartTTL window
func (c *Cart) RefreshExpiry(now time.Time) {
	if c.ExpiresAt == nil {
		return
	}
	expires := now.Add(GuestCartTTL)
	c.ExpiresAt = &expires
	c.UpdatedAt = now
	c.IncrementVersion()
}

// LineForVariant returns the line holding the given variant, or nil
func (c *Cart) LineForVariant(variantID uuid.UUID) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].VariantID == variantID {
			return &c.Lines[i]
		}
	}
	return nil
}

// LineByID returns the line with the given id, or nil
func (c *Cart) LineByID(lineID uuid.UUID) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i]
		}
	}
	return nil
}

// AddLine adds a variant to the cart, or bumps the existing line's quantity.
// A cart never holds two lines for the same variant; re-adding sums the
// quantities and refreshes the price snapshot. Returns the resulting line and
// whether an existing one was merged into.
func (c *Cart) AddLine(variantID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*CartLine, bool, error) {
	if quantity < 1 {
		return nil, false, shared.NewValidationError("Quantity must be at least 1")
	}

	if existing := c.LineForVariant(variantID); existing != nil {
		existing.Quantity += quantity
		existing.UnitPriceSnapshot = unitPrice
		existing.Touch()
		c.touch()
		return existing, true, nil
	}

	line, err := NewCartLine(c.ID, variantID, quantity, unitPrice)
	if err != nil {
		return nil, false, err
	}
	c.Lines = append(c.Lines, *line)
	c.touch()
	return &c.Lines[len(c.Lines)-1], false, nil
}

// UpdateLine sets a line's quantity and refreshes its price snapshot
func (c *Cart) UpdateLine(lineID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*CartLine, error) {
	if quantity < 1 {
		return nil, shared.NewValidationError("Quantity must be at least 1")
	}
	line := c.LineByID(lineID)
	if line == nil {
		return nil, shared.ErrNotFound
	}
	line.Quantity = quantity
	line.UnitPriceSnapshot = unitPrice
	line.Touch()
	c.touch()
	return line, nil
}

// RemoveLine removes a line from the cart
func (c *Cart) RemoveLine(lineID uuid.UUID) error {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.touch()
			return nil
		}
	}
	return shared.ErrNotFound
}

// Clear removes every line. The cart row itself survives; emptied user carts
// stay around for the next order, emptied guest carts age out via the sweep.
func (c *Cart) Clear() {
	c.Lines = c.Lines[:0]
	c.touch()
}

// MergeLine folds one guest line into this cart with the merge-by-max rule:
// an existing line takes the higher of the two quantities and re-snapshots at
// the supplied price when raised, a missing variant moves over as a new line.
// Quantities are never summed, so repeated guest-login cycles cannot inflate
// the cart. Returns true if the cart changed.
func (c *Cart) MergeLine(variantID uuid.UUID, quantity int, unitPrice decimal.Decimal) (bool, error) {
	if quantity < 1 {
		return false, shared.NewValidationError("Quantity must be at least 1")
	}

	if existing := c.LineForVariant(variantID); existing != nil {
		if quantity <= existing.Quantity {
			return false, nil
		}
		existing.Quantity = quantity
		existing.UnitPriceSnapshot = unitPrice
		existing.Touch()
		c.touch()
		return true, nil
	}

	line, err := NewCartLine(c.ID, variantID, quantity, unitPrice)
	if err != nil {
		return false, err
	}
	c.Lines = append(c.Lines, *line)
	c.touch()
	return true, nil
}

// RefreshLinePrices re-snapshots every line whose variant appears in prices.
// Lines for variants missing from the map keep their stale snapshot so
// validation can still flag them. Returns how many lines changed.
func (c *Cart) RefreshLinePrices(prices map[uuid.UUID]decimal.Decimal) int {
	changed := 0
	for i := range c.Lines {
		price, ok := prices[c.Lines[i].VariantID]
		if !ok || c.Lines[i].UnitPriceSnapshot.Equal(price) {
			continue
		}
		c.Lines[i].UnitPriceSnapshot = price
		c.Lines[i].Touch()
		changed++
	}
	if changed > 0 {
		c.touch()
	}
	return changed
}

// Subtotal sums quantity times price snapshot across all lines
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].LineTotal())
	}
	return total
}

// TotalQuantity sums the quantities across all lines
func (c *Cart) TotalQuantity() int {
	total := 0
	for i := range c.Lines {
		total += c.Lines[i].Quantity
	}
	return total
}

// IsEmpty returns true when the cart holds no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// CartLine is one variant in a cart. The unit price is a snapshot captured
// when the line was added and refreshed on update and checkout; the catalog
// price may drift away from it in the meantime.
type CartLine struct {
	shared.BaseEntity
	CartID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_cart_variant,priority:1"`
	VariantID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_cart_variant,priority:2"`
	Quantity          int             `gorm:"not null"`
	UnitPriceSnapshot decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (CartLine) TableName() string {
	return "cart_lines"
}

// NewCartLine creates a line for a variant
func NewCartLine(cartID, variantID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*CartLine, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewValidationError("Variant ID cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewValidationError("Quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("Unit price cannot be negative")
	}
	return &CartLine{
		BaseEntity:        shared.NewBaseEntity(),
		CartID:            cartID,
		VariantID:         variantID,
		Quantity:          quantity,
		UnitPriceSnapshot: unitPrice,
	}, nil
}

// LineTotal returns quantity times the snapshot price
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.UnitPriceSnapshot.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

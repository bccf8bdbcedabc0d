package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart persistence.
// Expiry filtering is explicit: lookups by owner exclude expired guest carts,
// FindByID does not.
type CartRepository interface {
	// FindByID finds a cart (with lines) by its ID, expired or not
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)

	// FindByUserID finds the cart owned by a user
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error)

	// FindBySessionKey finds a guest cart by session key, skipping carts
	// whose expires_at has already passed
	FindBySessionKey(ctx context.Context, sessionKey string, now time.Time) (*Cart, error)

	// Save creates or updates the cart row itself (owner, expiry, version)
	Save(ctx context.Context, cart *Cart) error

	// SaveLine creates or updates a single cart line
	SaveLine(ctx context.Context, line *CartLine) error

	// DeleteLine removes a single cart line
	DeleteLine(ctx context.Context, lineID uuid.UUID) error

	// ClearLines removes every line of a cart, keeping the cart row
	ClearLines(ctx context.Context, cartID uuid.UUID) error

	// Delete removes the cart and all of its lines
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes guest carts past their expiry and returns how
	// many were swept
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

package shared

import (
	"context"
	"time"
)

// IdempotencyStore guards duplicate submissions keyed by a client-supplied
// idempotency key. Checkout claims the key before starting its transaction;
// a concurrent duplicate fails to claim and is rejected, a replay after
// commit is answered from the persisted order instead.
type IdempotencyStore interface {
	// Acquire atomically claims a key for the given TTL. Returns true when
	// the key was newly claimed, false when it is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a claimed key so a failed request can be retried.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for the checkout idempotency guard
type IdempotencyConfig struct {
	// TTL is how long a claimed key blocks duplicates. After this duration
	// the same key can start a fresh checkout.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether the guard is enforced
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}

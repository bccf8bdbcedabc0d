package order

import (
	"context"
	"fmt"

	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// FormatOrderNumber renders the human-readable order number for a per-year
// sequence value, e.g. ORD-2026-00042. The zero padding widens past five
// digits rather than wrapping.
func FormatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%05d", year, seq)
}

// OrderNumberSequencer hands out the next value of the per-year order
// sequence. Next must be collision-free under concurrent callers; the
// postgres implementation does an atomic upsert-returning on a sequence
// row, never a read-then-increment.
type OrderNumberSequencer interface {
	Next(ctx context.Context, year int) (int64, error)
}

// OrderRepository defines persistence for orders. Find methods preload
// items; FindByIDForUpdate additionally takes a row lock so status changes
// serialize.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Create(ctx context.Context, o *Order) error
	SaveWithLock(ctx context.Context, o *Order) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountByCustomerEmail(ctx context.Context, email string) (int64, error)
}

// StatusLogRepository defines persistence for the status audit trail
type StatusLogRepository interface {
	Create(ctx context.Context, entry *StatusLogEntry) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]StatusLogEntry, error)
}

// PaymentTransactionRepository defines persistence for gateway attempts
type PaymentTransactionRepository interface {
	Create(ctx context.Context, tx *PaymentTransaction) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error)
}

// ReturnRequestRepository defines persistence for return requests
type ReturnRequestRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReturnRequest, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ReturnRequest, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]ReturnRequest, error)
	Create(ctx context.Context, req *ReturnRequest) error
	SaveWithLock(ctx context.Context, req *ReturnRequest) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}

package persistence

import (
	"context"

	"github.com/ecom/backend/internal/domain/order"
	"gorm.io/gorm"
)

// GormOrderNumberSequencer hands out per-year order numbers from the
// order_number_sequences table. The increment happens inside a single
// upsert-returning statement, so two concurrent checkouts can never be
// handed the same value; gaps from rolled-back checkouts are accepted.
type GormOrderNumberSequencer struct {
	db *gorm.DB
}

// NewGormOrderNumberSequencer creates a new GormOrderNumberSequencer
func NewGormOrderNumberSequencer(db *gorm.DB) *GormOrderNumberSequencer {
	return &GormOrderNumberSequencer{db: db}
}

// Next returns the next sequence value for the given year
func (s *GormOrderNumberSequencer) Next(ctx context.Context, year int) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).Raw(
		`INSERT INTO order_number_sequences (year, last_value) VALUES (?, 1)
		 ON CONFLICT (year) DO UPDATE SET last_value = order_number_sequences.last_value + 1
		 RETURNING last_value`,
		year,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Ensure GormOrderNumberSequencer implements OrderNumberSequencer
var _ order.OrderNumberSequencer = (*GormOrderNumberSequencer)(nil)

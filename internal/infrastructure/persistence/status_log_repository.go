package persistence

import (
	"context"

	"github.com/ecom/backend/internal/domain/order"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStatusLogRepository implements StatusLogRepository using GORM. The
// table is append-only: one row per status transition, never rewritten.
type GormStatusLogRepository struct {
	db *gorm.DB
}

// NewGormStatusLogRepository creates a new GormStatusLogRepository
func NewGormStatusLogRepository(db *gorm.DB) *GormStatusLogRepository {
	return &GormStatusLogRepository{db: db}
}

// Create creates a status log entry
func (r *GormStatusLogRepository) Create(ctx context.Context, entry *order.StatusLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByOrder lists an order's transitions oldest-first
func (r *GormStatusLogRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.StatusLogEntry, error) {
	var entries []order.StatusLogEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormStatusLogRepository implements StatusLogRepository
var _ order.StatusLogRepository = (*GormStatusLogRepository)(nil)

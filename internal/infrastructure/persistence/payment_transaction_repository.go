package persistence

import (
	"context"

	"github.com/ecom/backend/internal/domain/order"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentTransactionRepository implements PaymentTransactionRepository
// using GORM. Gateway attempts are recorded once and kept verbatim.
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// Create creates a payment transaction record
func (r *GormPaymentTransactionRepository) Create(ctx context.Context, tx *order.PaymentTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// FindByOrder lists an order's payment attempts oldest-first
func (r *GormPaymentTransactionRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.PaymentTransaction, error) {
	var transactions []order.PaymentTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("occurred_at ASC, created_at ASC").
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// Ensure GormPaymentTransactionRepository implements PaymentTransactionRepository
var _ order.PaymentTransactionRepository = (*GormPaymentTransactionRepository)(nil)

package persistence

import (
	"context"

	apporder "github.com/ecom/backend/internal/application/order"
	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/order"
	"gorm.io/gorm"
)

// GormOrderTransactionScope implements the order TransactionScope using
// GORM transactions. Everything a checkout writes (the order, stock
// deductions, ledger entries, the coupon counter, the usage record, the
// cart clear) and everything a status change writes (the order, restocks,
// the audit entry) shares one transaction; stock row locks taken inside
// are held to commit.
type GormOrderTransactionScope struct {
	db *gorm.DB
}

// NewGormOrderTransactionScope creates a new GormOrderTransactionScope
func NewGormOrderTransactionScope(db *gorm.DB) *GormOrderTransactionScope {
	return &GormOrderTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormOrderTransactionScope) Execute(ctx context.Context, fn func(repos apporder.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormOrderTxRepos{tx: tx}
		return fn(repos)
	})
}

// gormOrderTxRepos provides access to the order-side repositories within a
// transaction
type gormOrderTxRepos struct {
	tx *gorm.DB
}

// Orders returns the order repository scoped to the current transaction
func (r *gormOrderTxRepos) Orders() order.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// StatusLogs returns the status audit trail repository
func (r *gormOrderTxRepos) StatusLogs() order.StatusLogRepository {
	return NewGormStatusLogRepository(r.tx)
}

// Payments returns the payment transaction repository
func (r *gormOrderTxRepos) Payments() order.PaymentTransactionRepository {
	return NewGormPaymentTransactionRepository(r.tx)
}

// Returns returns the return request repository
func (r *gormOrderTxRepos) Returns() order.ReturnRequestRepository {
	return NewGormReturnRequestRepository(r.tx)
}

// StockUnits returns the stock unit repository scoped to the current transaction
func (r *gormOrderTxRepos) StockUnits() inventory.StockUnitRepository {
	return NewGormStockUnitRepository(r.tx)
}

// InventoryLogs returns the append-only stock ledger repository
func (r *gormOrderTxRepos) InventoryLogs() inventory.InventoryLogRepository {
	return NewGormInventoryLogRepository(r.tx)
}

// Carts returns the cart repository scoped to the current transaction
func (r *gormOrderTxRepos) Carts() cart.CartRepository {
	return NewGormCartRepository(r.tx)
}

// Coupons returns the coupon repository scoped to the current transaction
func (r *gormOrderTxRepos) Coupons() coupon.CouponRepository {
	return NewGormCouponRepository(r.tx)
}

// CouponUsages returns the coupon redemption trail repository
func (r *gormOrderTxRepos) CouponUsages() coupon.UsageRecordRepository {
	return NewGormUsageRecordRepository(r.tx)
}

// Sequences returns the per-year order number sequencer
func (r *gormOrderTxRepos) Sequences() order.OrderNumberSequencer {
	return NewGormOrderNumberSequencer(r.tx)
}

// Ensure GormOrderTransactionScope implements TransactionScope
var _ apporder.TransactionScope = (*GormOrderTransactionScope)(nil)

// Ensure gormOrderTxRepos implements TransactionalRepositories
var _ apporder.TransactionalRepositories = (*gormOrderTxRepos)(nil)

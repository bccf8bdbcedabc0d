package order

import (
	"context"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/coupon"
	"github.com/ecom/backend/internal/domain/inventory"
	"github.com/ecom/backend/internal/domain/order"
)

// TransactionScope provides transactional access to every repository a
// checkout or status change touches. All repository operations inside one
// Execute call share the same database transaction and commit or roll back
// atomically, which is what makes an order, its stock deductions, its ledger
// entries, its coupon usage and the cart clear a single unit of work.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories scoped to
// the current transaction. Row locks taken through any of them are held
// until the scope commits.
type TransactionalRepositories interface {
	// Orders returns the order repository scoped to the current transaction
	Orders() order.OrderRepository
	// StatusLogs returns the status audit trail repository
	StatusLogs() order.StatusLogRepository
	// Payments returns the payment transaction repository
	Payments() order.PaymentTransactionRepository
	// Returns returns the return request repository
	Returns() order.ReturnRequestRepository
	// StockUnits returns the stock unit repository
	StockUnits() inventory.StockUnitRepository
	// InventoryLogs returns the append-only stock ledger repository
	InventoryLogs() inventory.InventoryLogRepository
	// Carts returns the cart repository
	Carts() cart.CartRepository
	// Coupons returns the coupon repository
	Coupons() coupon.CouponRepository
	// CouponUsages returns the coupon redemption trail repository
	CouponUsages() coupon.UsageRecordRepository
	// Sequences returns the per-year order number sequencer
	Sequences() order.OrderNumberSequencer
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	orderRepo     order.OrderRepository
	statusLogRepo order.StatusLogRepository
	paymentRepo   order.PaymentTransactionRepository
	returnRepo    order.ReturnRequestRepository
	stockUnitRepo inventory.StockUnitRepository
	invLogRepo    inventory.InventoryLogRepository
	cartRepo      cart.CartRepository
	couponRepo    coupon.CouponRepository
	usageRepo     coupon.UsageRecordRepository
	sequencer     order.OrderNumberSequencer
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories.
func NewNoOpTransactionScope(
	orderRepo order.OrderRepository,
	statusLogRepo order.StatusLogRepository,
	paymentRepo order.PaymentTransactionRepository,
	returnRepo order.ReturnRequestRepository,
	stockUnitRepo inventory.StockUnitRepository,
	invLogRepo inventory.InventoryLogRepository,
	cartRepo cart.CartRepository,
	couponRepo coupon.CouponRepository,
	usageRepo coupon.UsageRecordRepository,
	sequencer order.OrderNumberSequencer,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:     orderRepo,
		statusLogRepo: statusLogRepo,
		paymentRepo:   paymentRepo,
		returnRepo:    returnRepo,
		stockUnitRepo: stockUnitRepo,
		invLogRepo:    invLogRepo,
		cartRepo:      cartRepo,
		couponRepo:    couponRepo,
		usageRepo:     usageRepo,
		sequencer:     sequencer,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Orders returns the order repository.
func (s *NoOpTransactionScope) Orders() order.OrderRepository {
	return s.orderRepo
}

// StatusLogs returns the status audit trail repository.
func (s *NoOpTransactionScope) StatusLogs() order.StatusLogRepository {
	return s.statusLogRepo
}

// Payments returns the payment transaction repository.
func (s *NoOpTransactionScope) Payments() order.PaymentTransactionRepository {
	return s.paymentRepo
}

// Returns returns the return request repository.
func (s *NoOpTransactionScope) Returns() order.ReturnRequestRepository {
	return s.returnRepo
}

// StockUnits returns the stock unit repository.
func (s *NoOpTransactionScope) StockUnits() inventory.StockUnitRepository {
	return s.stockUnitRepo
}

// InventoryLogs returns the stock ledger repository.
func (s *NoOpTransactionScope) InventoryLogs() inventory.InventoryLogRepository {
	return s.invLogRepo
}

// Carts returns the cart repository.
func (s *NoOpTransactionScope) Carts() cart.CartRepository {
	return s.cartRepo
}

// Coupons returns the coupon repository.
func (s *NoOpTransactionScope) Coupons() coupon.CouponRepository {
	return s.couponRepo
}

// CouponUsages returns the coupon redemption trail repository.
func (s *NoOpTransactionScope) CouponUsages() coupon.UsageRecordRepository {
	return s.usageRepo
}

// Sequences returns the order number sequencer.
func (s *NoOpTransactionScope) Sequences() order.OrderNumberSequencer {
	return s.sequencer
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

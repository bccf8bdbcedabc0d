package inventory

import (
	"context"

	"github.com/ecom/backend/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the inventory repositories within
// a transaction. Both repositories share the same underlying database transaction,
// which is what makes a quantity mutation and its ledger entry atomic: the row
// lock taken by FindByVariantIDForUpdate is held until the scope commits.
type TransactionalRepositories interface {
	// StockUnits returns the stock unit repository scoped to the current transaction
	StockUnits() inventory.StockUnitRepository
	// Logs returns the append-only ledger repository scoped to the current transaction
	Logs() inventory.InventoryLogRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	stockUnitRepo inventory.StockUnitRepository
	logRepo       inventory.InventoryLogRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	stockUnitRepo inventory.StockUnitRepository,
	logRepo inventory.InventoryLogRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		stockUnitRepo: stockUnitRepo,
		logRepo:       logRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockUnits returns the stock unit repository.
func (s *NoOpTransactionScope) StockUnits() inventory.StockUnitRepository {
	return s.stockUnitRepo
}

// Logs returns the ledger repository.
func (s *NoOpTransactionScope) Logs() inventory.InventoryLogRepository {
	return s.logRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

package persistence

import (
	"context"

	appinv "github.com/ecom/backend/internal/application/inventory"
	"github.com/ecom/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormInventoryTransactionScope implements the inventory TransactionScope
// using GORM transactions. A stock adjustment and its ledger entry run in
// the same transaction, so the row lock taken by FindByVariantIDForUpdate
// is held until both are committed or rolled back.
type GormInventoryTransactionScope struct {
	db *gorm.DB
}

// NewGormInventoryTransactionScope creates a new GormInventoryTransactionScope
func NewGormInventoryTransactionScope(db *gorm.DB) *GormInventoryTransactionScope {
	return &GormInventoryTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormInventoryTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormInventoryTxRepos{tx: tx}
		return fn(repos)
	})
}

// gormInventoryTxRepos provides access to the inventory repositories within
// a transaction
type gormInventoryTxRepos struct {
	tx *gorm.DB
}

// StockUnits returns the stock unit repository scoped to the current transaction
func (r *gormInventoryTxRepos) StockUnits() inventory.StockUnitRepository {
	return NewGormStockUnitRepository(r.tx)
}

// Logs returns the ledger repository scoped to the current transaction
func (r *gormInventoryTxRepos) Logs() inventory.InventoryLogRepository {
	return NewGormInventoryLogRepository(r.tx)
}

// Ensure GormInventoryTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormInventoryTransactionScope)(nil)

// Ensure gormInventoryTxRepos implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormInventoryTxRepos)(nil)

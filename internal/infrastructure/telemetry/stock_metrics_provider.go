package telemetry

import (
	"context"

	"github.com/ecom/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormStockMetricsProvider reads inventory gauge values straight from the
// database, bypassing the repositories: the collector only needs counts.
type GormStockMetricsProvider struct {
	db *gorm.DB
}

// NewGormStockMetricsProvider creates a new GormStockMetricsProvider
func NewGormStockMetricsProvider(db *gorm.DB) *GormStockMetricsProvider {
	return &GormStockMetricsProvider{db: db}
}

// LowStockCount counts tracked stock units at or below their threshold
func (p *GormStockMetricsProvider) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Model(&inventory.StockUnit{}).
		Where("tracks_inventory = ? AND quantity_on_hand <= low_stock_threshold", true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormStockMetricsProvider implements StockMetricsProvider
var _ StockMetricsProvider = (*GormStockMetricsProvider)(nil)

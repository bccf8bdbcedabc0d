package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ecom/backend/internal/domain/catalog"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// catalogVariantRow is the read model over the platform's catalog_variants
// projection. This service only ever selects from it; the catalog pipeline
// owns the writes.
type catalogVariantRow struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID        uuid.UUID       `gorm:"type:uuid"`
	CategoryID       uuid.UUID       `gorm:"type:uuid"`
	ProductName      string          `gorm:"type:varchar(255)"`
	VariantName      string          `gorm:"type:varchar(255)"`
	SKU              string          `gorm:"type:varchar(100)"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2)"`
	Attributes       string          `gorm:"type:text"`
	IsActive         bool            `gorm:"not null;default:true"`
	ProductPublished bool            `gorm:"not null;default:false"`
	DeletedAt        *time.Time      `gorm:"type:timestamptz"`
}

// TableName returns the table name for GORM
func (catalogVariantRow) TableName() string {
	return "catalog_variants"
}

func (row catalogVariantRow) toInfo() (catalog.VariantInfo, error) {
	info := catalog.VariantInfo{
		ID:               row.ID,
		ProductID:        row.ProductID,
		CategoryID:       row.CategoryID,
		ProductName:      row.ProductName,
		VariantName:      row.VariantName,
		SKU:              row.SKU,
		Price:            row.Price,
		IsActive:         row.IsActive,
		ProductPublished: row.ProductPublished,
		Deleted:          row.DeletedAt != nil,
	}
	if row.Attributes != "" {
		if err := json.Unmarshal([]byte(row.Attributes), &info.Attributes); err != nil {
			return catalog.VariantInfo{}, err
		}
	}
	return info, nil
}

// GormCatalogReader implements the catalog boundary as a read-only GORM
// projection
type GormCatalogReader struct {
	db *gorm.DB
}

// NewGormCatalogReader creates a new GormCatalogReader
func NewGormCatalogReader(db *gorm.DB) *GormCatalogReader {
	return &GormCatalogReader{db: db}
}

// Variant returns info for a single variant
func (r *GormCatalogReader) Variant(ctx context.Context, id uuid.UUID) (*catalog.VariantInfo, error) {
	var row catalogVariantRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	info, err := row.toInfo()
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Variants returns info for a batch of variants keyed by variant id.
// Unknown ids are absent from the result map.
func (r *GormCatalogReader) Variants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.VariantInfo, error) {
	result := make(map[uuid.UUID]catalog.VariantInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []catalogVariantRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		info, err := row.toInfo()
		if err != nil {
			return nil, err
		}
		result[row.ID] = info
	}
	return result, nil
}

// Ensure GormCatalogReader implements Catalog
var _ catalog.Catalog = (*GormCatalogReader)(nil)

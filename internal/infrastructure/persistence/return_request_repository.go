package persistence

import (
	"context"
	"errors"

	"github.com/ecom/backend/internal/domain/order"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReturnRequestRepository implements ReturnRequestRepository using GORM
type GormReturnRequestRepository struct {
	db *gorm.DB
}

// NewGormReturnRequestRepository creates a new GormReturnRequestRepository
func NewGormReturnRequestRepository(db *gorm.DB) *GormReturnRequestRepository {
	return &GormReturnRequestRepository{db: db}
}

// FindByID finds a return request by its ID
func (r *GormReturnRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.ReturnRequest, error) {
	var req order.ReturnRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindByOrder lists an order's return requests newest-first
func (r *GormReturnRequestRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.ReturnRequest, error) {
	var requests []order.ReturnRequest
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindAll lists return requests matching the filter
func (r *GormReturnRequestRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.ReturnRequest, error) {
	var requests []order.ReturnRequest
	query := r.applyFilter(r.db.WithContext(ctx).Model(&order.ReturnRequest{}), filter)

	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Create creates a return request
func (r *GormReturnRequestRepository) Create(ctx context.Context, req *order.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// SaveWithLock saves with optimistic locking (checks version). The items
// snapshot and reason are immutable after Create; only the processing
// outcome is written.
func (r *GormReturnRequestRepository) SaveWithLock(ctx context.Context, req *order.ReturnRequest) error {
	result := r.db.WithContext(ctx).
		Model(req).
		Where("id = ? AND version = ?", req.ID, req.Version-1).
		Updates(map[string]interface{}{
			"status":           req.Status,
			"refund_amount":    req.RefundAmount,
			"processed_by":     req.ProcessedBy,
			"processed_at":     req.ProcessedAt,
			"processing_notes": req.ProcessingNotes,
			"version":          req.Version,
			"updated_at":       req.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict, "Return request was modified by another transaction")
	}
	return nil
}

// Count counts return requests matching the filter
func (r *GormReturnRequestRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&order.ReturnRequest{}), filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormReturnRequestRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, ReturnRequestSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormReturnRequestRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "order_id":
			query = query.Where("order_id = ?", value)
		}
	}

	return query
}

// Ensure GormReturnRequestRepository implements ReturnRequestRepository
var _ order.ReturnRequestRepository = (*GormReturnRequestRepository)(nil)

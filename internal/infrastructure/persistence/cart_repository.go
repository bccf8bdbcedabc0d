package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/ecom/backend/internal/domain/cart"
	"github.com/ecom/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCartRepository implements CartRepository using GORM. Find methods
// preload lines ordered by creation time so line positions are stable
// across reads.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

func (r *GormCartRepository) withLines(query *gorm.DB) *gorm.DB {
	return query.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_lines.created_at ASC")
	})
}

// FindByID finds a cart (with lines) by its ID, expired or not
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.withLines(r.db.WithContext(ctx)).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByUserID finds the cart owned by a user
func (r *GormCartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.withLines(r.db.WithContext(ctx)).First(&c, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindBySessionKey finds a guest cart by session key, skipping carts whose
// expires_at has already passed
func (r *GormCartRepository) FindBySessionKey(ctx context.Context, sessionKey string, now time.Time) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.withLines(r.db.WithContext(ctx)).
		Where("session_key = ? AND (expires_at IS NULL OR expires_at > ?)", sessionKey, now).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save creates or updates the cart row itself (owner, expiry, version).
// Lines are saved individually through SaveLine/DeleteLine so that a line
// mutation does not rewrite the whole collection.
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Omit("Lines").Save(c).Error
}

// SaveLine creates or updates a single cart line
func (r *GormCartRepository) SaveLine(ctx context.Context, line *cart.CartLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

// DeleteLine removes a single cart line
func (r *GormCartRepository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&cart.CartLine{}, "id = ?", lineID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClearLines removes every line of a cart, keeping the cart row
func (r *GormCartRepository) ClearLines(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&cart.CartLine{}, "cart_id = ?", cartID).Error
}

// Delete removes the cart and all of its lines
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&cart.CartLine{}, "cart_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&cart.Cart{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// DeleteExpired removes guest carts past their expiry and returns how many
// were swept
func (r *GormCartRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var swept int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&cart.Cart{}).
			Where("user_id IS NULL AND expires_at IS NOT NULL AND expires_at <= ?", now).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Delete(&cart.CartLine{}, "cart_id IN ?", ids).Error; err != nil {
			return err
		}
		result := tx.Delete(&cart.Cart{}, "id IN ?", ids)
		if result.Error != nil {
			return result.Error
		}
		swept = result.RowsAffected
		return nil
	})
	return swept, err
}

// Ensure GormCartRepository implements CartRepository
var _ cart.CartRepository = (*GormCartRepository)(nil)

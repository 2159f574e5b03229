package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/modbay/storefront/internal/cart/domain"
)

type GormCartRepository struct {
	db *gorm.DB
}

func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// Add inserts a cart item; adding the same product twice is a no-op.
func (r *GormCartRepository) Add(ctx context.Context, item *domain.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "buyer_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(item).Error
}

func (r *GormCartRepository) Remove(ctx context.Context, buyerID, productID uint) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Delete(&domain.CartItem{}).Error
}

func (r *GormCartRepository) ListByBuyerID(ctx context.Context, buyerID uint) ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at").
		Find(&items).Error
	return items, err
}

func (r *GormCartRepository) Clear(ctx context.Context, buyerID uint) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&domain.CartItem{}).Error
}

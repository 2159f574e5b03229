package domain

import (
	"context"
	"time"
)

// CartItem is one product in a buyer's cart. A product appears at most once
// per buyer.
type CartItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BuyerID   uint      `json:"buyer_id" gorm:"not null;uniqueIndex:idx_cart_buyer_product"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_cart_buyer_product"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// CartRepository defines the contract for cart data access. Clear is also
// executed inside the order materialization transaction; this interface
// serves the HTTP cart surface.
type CartRepository interface {
	Add(ctx context.Context, item *CartItem) error
	Remove(ctx context.Context, buyerID, productID uint) error
	ListByBuyerID(ctx context.Context, buyerID uint) ([]CartItem, error)
	Clear(ctx context.Context, buyerID uint) error
}

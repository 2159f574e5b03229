package domain

import (
	"context"
	"errors"
	"time"
)

// Payout statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

var ErrPayoutNotFound = errors.New("payout not found")

// SellerPayout is the platform's transfer of the seller's share of a
// completed order. Exactly one payout exists per order; the unique order_id
// index enforces it.
type SellerPayout struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SellerID   uint      `json:"seller_id" gorm:"not null;index"`
	OrderID    uint      `json:"order_id" gorm:"not null;uniqueIndex"`
	Amount     int64     `json:"amount" gorm:"not null"` // centavos
	Status     string    `json:"status" gorm:"default:'pending';index"`
	TransferID string    `json:"transfer_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (SellerPayout) TableName() string {
	return "seller_payouts"
}

// PayoutRepository defines the contract for payout persistence.
type PayoutRepository interface {
	// CreateForOrder inserts the payout for an order. created is false when
	// a payout for that order already exists; the existing row is returned.
	CreateForOrder(ctx context.Context, payout *SellerPayout) (created bool, existing *SellerPayout, err error)
	FindByID(ctx context.Context, id uint) (*SellerPayout, error)
	FindByOrderID(ctx context.Context, orderID uint) (*SellerPayout, error)
	FindAll(ctx context.Context, status string, limit, offset int) ([]SellerPayout, error)
	MarkSent(ctx context.Context, id uint, transferID string) error
	MarkFailed(ctx context.Context, id uint) error
}

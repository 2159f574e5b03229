package domain

import (
	"context"
	"errors"
	"time"
)

// Order statuses. There is no transition out of completed.
const (
	StatusAwaitingPayment = "awaiting_payment"
	StatusCompleted       = "completed"
	StatusFailed          = "failed"
)

// Seller payment statuses on the order.
const (
	SellerPaymentNone    = "none"
	SellerPaymentPending = "pending"
	SellerPaymentSent    = "sent"
	SellerPaymentFailed  = "failed"
)

var ErrOrderNotFound = errors.New("order not found")

// Order is the durable order aggregate. It is created in awaiting_payment
// when the payment intent is created, transitioned to completed exactly once
// by the reconciliation engine, and never deleted.
type Order struct {
	ID                  uint        `json:"id" gorm:"primaryKey"`
	BuyerID             uint        `json:"buyer_id" gorm:"not null;index"`
	SellerID            uint        `json:"seller_id" gorm:"not null;index"`
	Items               []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	Amount              int64       `json:"amount" gorm:"not null"` // centavos
	PlatformFee         int64       `json:"platform_fee"`
	SellerAmount        int64       `json:"seller_amount"`
	Status              string      `json:"status" gorm:"default:'awaiting_payment';index"`
	PaymentExternalID   string      `json:"payment_external_id" gorm:"not null;uniqueIndex"`
	DownloadToken       string      `json:"download_token,omitempty"`
	DownloadExpiresAt   *time.Time  `json:"download_expires_at,omitempty"`
	SellerPaymentStatus string      `json:"seller_payment_status" gorm:"default:'none'"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// OrderItem records one purchased product with its price at purchase time.
type OrderItem struct {
	ID        uint  `json:"id" gorm:"primaryKey"`
	OrderID   uint  `json:"order_id" gorm:"not null;index"`
	ProductID uint  `json:"product_id" gorm:"not null"`
	Price     int64 `json:"price" gorm:"not null"` // centavos
}

// TableName specifies the table name
func (OrderItem) TableName() string {
	return "order_items"
}

// MaterializeParams carries the computed results applied when an order
// transitions to completed.
type MaterializeParams struct {
	PaymentExternalID string
	PlatformFee       int64
	SellerAmount      int64
	DownloadToken     string
	DownloadExpiresAt time.Time
}

// OrderRepository defines the contract for order persistence. Materialize is
// the concurrency primitive for the whole payment path: the conditional
// status transition under the unique payment_external_id index admits exactly
// one winner across processes.
type OrderRepository interface {
	CreateAwaitingPayment(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uint) (*Order, error)
	FindByPaymentExternalID(ctx context.Context, externalID string) (*Order, error)
	FindByBuyerID(ctx context.Context, buyerID uint, limit, offset int) ([]Order, error)
	FindByDownloadToken(ctx context.Context, token string) (*Order, error)
	// Materialize atomically completes the order, increments the purchased
	// products' download counters and clears the buyer's cart, all in one
	// database transaction. won is false when another caller already
	// completed the order.
	Materialize(ctx context.Context, params MaterializeParams) (won bool, order *Order, err error)
	MarkFailed(ctx context.Context, externalID string) error
	UpdateSellerPaymentStatus(ctx context.Context, orderID uint, status string) error
}

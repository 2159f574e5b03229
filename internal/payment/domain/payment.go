package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Intent statuses. Once an intent reaches a terminal status (approved,
// rejected, expired) it never transitions again.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

var (
	ErrIntentNotFound = errors.New("payment intent not found")
)

// PaymentIntent is the durable record of a requested-but-unconfirmed PIX
// payment. ExternalID is assigned by the provider (or the simulator) and is
// the idempotency key for the whole reconciliation path.
type PaymentIntent struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	ExternalID     string         `json:"external_id" gorm:"not null;uniqueIndex"`
	BuyerID        uint           `json:"buyer_id" gorm:"not null;index"`
	Amount         int64          `json:"amount" gorm:"not null"` // centavos
	Description    string         `json:"description"`
	PixCode        string         `json:"pix_code"`
	QRCode         string         `json:"qr_code"`
	Status         string         `json:"status" gorm:"default:'pending';index"`
	Simulated      bool           `json:"simulated" gorm:"default:false"`
	ExpiresAt      time.Time      `json:"expires_at"`
	MaterializedAt *time.Time     `json:"materialized_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (PaymentIntent) TableName() string {
	return "payment_intents"
}

// Terminal reports whether the status allows no further transition.
func Terminal(status string) bool {
	return status == StatusApproved || status == StatusRejected || status == StatusExpired
}

// IntentRepository defines the contract for payment intent persistence.
type IntentRepository interface {
	Create(ctx context.Context, intent *PaymentIntent) error
	FindByExternalID(ctx context.Context, externalID string) (*PaymentIntent, error)
	// UpdateStatus records a status observation. Implementations must keep
	// terminal statuses immutable.
	UpdateStatus(ctx context.Context, externalID, status string) error
	MarkMaterialized(ctx context.Context, externalID string, at time.Time) error
}

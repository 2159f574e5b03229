package domain

import (
	"context"
	"time"
)

// Notification is a delivered (or to-be-read) message for a user. EventID is
// unique so the at-least-once delivery pipeline stays idempotent.
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	EventID   string    `json:"event_id" gorm:"not null;uniqueIndex"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Message   string    `json:"message"`
	Read      bool      `json:"read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}

// NotificationRepository defines the contract for notification persistence.
type NotificationRepository interface {
	// Insert stores a notification; a duplicate event id is a no-op.
	Insert(ctx context.Context, notification *Notification) error
	FindByUserID(ctx context.Context, userID uint, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID uint) error
}

// Sink is the notification capability consumed by the reconciliation engine
// and the payout scheduler. Implementations deliver at least once.
type Sink interface {
	Send(ctx context.Context, userID uint, title, message string) error
}

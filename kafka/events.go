package kafka

import "time"

// NotificationRequestedEvent asks the notifier worker to deliver a message
// to a user. Delivery is at-least-once; consumers dedupe on EventID.
type NotificationRequestedEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	UserID    uint      `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCompletedEvent is emitted once per materialized order, by the
// reconciliation winner only.
type OrderCompletedEvent struct {
	EventID           string    `json:"event_id"`
	EventType         string    `json:"event_type"`
	OrderID           uint      `json:"order_id"`
	BuyerID           uint      `json:"buyer_id"`
	SellerID          uint      `json:"seller_id"`
	PaymentExternalID string    `json:"payment_external_id"`
	Amount            int64     `json:"amount"`
	PlatformFee       int64     `json:"platform_fee"`
	SellerAmount      int64     `json:"seller_amount"`
	Timestamp         time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeNotificationRequested = "notification.requested"
	EventTypeOrderCompleted        = "order.completed"
)

// Kafka topics
const (
	TopicNotifications  = "notifications"
	TopicOrderCompleted = "order-completed"
)

// Package notification provides the sink implementations behind the
// notification capability: a Kafka-backed sink for deployments with a
// notifier worker, and a store sink that writes straight to the database
// when no broker is configured.
package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/modbay/storefront/internal/notification/domain"
	"github.com/modbay/storefront/kafka"
)

// KafkaSink publishes notification requests to the notifications topic.
// Delivery to the user is completed asynchronously by the notifier worker.
type KafkaSink struct {
	publisher *kafka.Publisher
}

func NewKafkaSink(publisher *kafka.Publisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (s *KafkaSink) Send(ctx context.Context, userID uint, title, message string) error {
	return s.publisher.PublishNotificationRequested(ctx, kafka.NotificationRequestedEvent{
		EventID: uuid.New().String(),
		UserID:  userID,
		Title:   title,
		Message: message,
	})
}

// StoreSink writes notifications directly to the repository. Used when Kafka
// is not configured.
type StoreSink struct {
	repo domain.NotificationRepository
}

func NewStoreSink(repo domain.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Send(ctx context.Context, userID uint, title, message string) error {
	return s.repo.Insert(ctx, &domain.Notification{
		EventID: uuid.New().String(),
		UserID:  userID,
		Title:   title,
		Message: message,
	})
}

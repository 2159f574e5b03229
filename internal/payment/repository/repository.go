package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/modbay/storefront/internal/payment/domain"
)

// GormIntentRepository implements domain.IntentRepository using GORM.
type GormIntentRepository struct {
	db *gorm.DB
}

func NewGormIntentRepository(db *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: db}
}

func (r *GormIntentRepository) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *GormIntentRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	var intent domain.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}

// UpdateStatus records a status observation. The WHERE clause keeps terminal
// statuses immutable: an intent that already reached approved, rejected or
// expired is never rewritten, so racing observations cannot flap the status.
func (r *GormIntentRepository) UpdateStatus(ctx context.Context, externalID, status string) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("external_id = ? AND status NOT IN ?", externalID,
			[]string{domain.StatusApproved, domain.StatusRejected, domain.StatusExpired}).
		Update("status", status).Error
}

func (r *GormIntentRepository) MarkMaterialized(ctx context.Context, externalID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.PaymentIntent{}).
		Where("external_id = ? AND materialized_at IS NULL", externalID).
		Update("materialized_at", at).Error
}

package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/modbay/storefront/internal/payout/domain"
)

type GormPayoutRepository struct {
	db *gorm.DB
}

func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

func (r *GormPayoutRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.SellerPayout{})
}

// CreateForOrder inserts under the unique order_id index. On conflict the
// insert is a no-op and the existing payout is returned, so a payout can
// never be duplicated for the same order.
func (r *GormPayoutRepository) CreateForOrder(ctx context.Context, payout *domain.SellerPayout) (bool, *domain.SellerPayout, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).
		Create(payout)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected == 1 {
		return true, payout, nil
	}

	existing, err := r.FindByOrderID(ctx, payout.OrderID)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (r *GormPayoutRepository) FindByID(ctx context.Context, id uint) (*domain.SellerPayout, error) {
	var payout domain.SellerPayout
	err := r.db.WithContext(ctx).First(&payout, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (r *GormPayoutRepository) FindByOrderID(ctx context.Context, orderID uint) (*domain.SellerPayout, error) {
	var payout domain.SellerPayout
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPayoutNotFound
		}
		return nil, err
	}
	return &payout, nil
}

func (r *GormPayoutRepository) FindAll(ctx context.Context, status string, limit, offset int) ([]domain.SellerPayout, error) {
	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var payouts []domain.SellerPayout
	err := q.Limit(limit).Offset(offset).
		Order("created_at DESC").
		Find(&payouts).Error
	return payouts, err
}

func (r *GormPayoutRepository) MarkSent(ctx context.Context, id uint, transferID string) error {
	return r.db.WithContext(ctx).Model(&domain.SellerPayout{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      domain.StatusSent,
			"transfer_id": transferID,
		}).Error
}

func (r *GormPayoutRepository) MarkFailed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&domain.SellerPayout{}).
		Where("id = ?", id).
		Update("status", domain.StatusFailed).Error
}

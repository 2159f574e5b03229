package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	cartdomain "github.com/modbay/storefront/internal/cart/domain"
	"github.com/modbay/storefront/internal/order/domain"
	productdomain "github.com/modbay/storefront/internal/product/domain"
)

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Order{}, &domain.OrderItem{})
}

// CreateAwaitingPayment inserts the order under the unique
// payment_external_id index. A conflicting insert is a no-op so a duplicated
// intent-creation request cannot produce two orders.
func (r *GormOrderRepository) CreateAwaitingPayment(ctx context.Context, order *domain.Order) error {
	order.Status = domain.StatusAwaitingPayment
	order.SellerPaymentStatus = domain.SellerPaymentNone
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_external_id"}},
			DoNothing: true,
		}).
		Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByPaymentExternalID(ctx context.Context, externalID string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("payment_external_id = ?", externalID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByBuyerID(ctx context.Context, buyerID uint, limit, offset int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("buyer_id = ?", buyerID).
		Limit(limit).Offset(offset).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *GormOrderRepository) FindByDownloadToken(ctx context.Context, token string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("download_token = ? AND status = ?", token, domain.StatusCompleted).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Materialize performs the completed transition and its in-transaction side
// effects. The conditional UPDATE on status is what makes concurrent
// reconcilers safe: exactly one of them observes RowsAffected == 1.
func (r *GormOrderRepository) Materialize(ctx context.Context, params domain.MaterializeParams) (bool, *domain.Order, error) {
	var (
		won   bool
		order domain.Order
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Order{}).
			Where("payment_external_id = ? AND status = ?", params.PaymentExternalID, domain.StatusAwaitingPayment).
			Updates(map[string]interface{}{
				"status":                domain.StatusCompleted,
				"platform_fee":          params.PlatformFee,
				"seller_amount":         params.SellerAmount,
				"download_token":        params.DownloadToken,
				"download_expires_at":   params.DownloadExpiresAt,
				"seller_payment_status": domain.SellerPaymentPending,
			})
		if res.Error != nil {
			return res.Error
		}
		won = res.RowsAffected == 1

		if err := tx.Preload("Items").
			Where("payment_external_id = ?", params.PaymentExternalID).
			First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}

		if !won {
			return nil
		}

		// Winner-only side effects, same transaction as the transition.
		for _, item := range order.Items {
			if err := tx.Model(&productdomain.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("buyer_id = ?", order.BuyerID).
			Delete(&cartdomain.CartItem{}).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return won, &order, nil
}

func (r *GormOrderRepository) MarkFailed(ctx context.Context, externalID string) error {
	// Only pending orders can fail; completed orders are immutable.
	return r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("payment_external_id = ? AND status = ?", externalID, domain.StatusAwaitingPayment).
		Update("status", domain.StatusFailed).Error
}

func (r *GormOrderRepository) UpdateSellerPaymentStatus(ctx context.Context, orderID uint, status string) error {
	return r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", orderID).
		Update("seller_payment_status", status).Error
}

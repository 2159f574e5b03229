package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/modbay/storefront/internal/settings/domain"
)

type GormSettingsRepository struct {
	db *gorm.DB
}

func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

func (r *GormSettingsRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.PlatformSettings{})
}

// Get returns the singleton settings row, creating it with defaults the
// first time it is read.
func (r *GormSettingsRepository) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	var settings domain.PlatformSettings
	err := r.db.WithContext(ctx).
		Where(domain.PlatformSettings{ID: 1}).
		Attrs(domain.PlatformSettings{
			FeePercentage:       domain.DefaultFeePercentage,
			AutoPayoutEnabled:   true,
			MinimumPayoutAmount: domain.DefaultMinimumPayoutAmount,
		}).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *GormSettingsRepository) Update(ctx context.Context, settings *domain.PlatformSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.ID = 1
	return r.db.WithContext(ctx).Save(settings).Error
}

package domain

import (
	"context"
	"time"

	"github.com/modbay/storefront/internal/money"
)

// Defaults applied when the settings row is first created.
const (
	DefaultFeePercentage       = 10.0
	DefaultMinimumPayoutAmount = 500 // centavos, R$5.00
)

// PlatformSettings is the singleton configuration row for fees and payouts.
// It is lazily created with defaults on first access and mutated only by
// admin action.
type PlatformSettings struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	FeePercentage       float64   `json:"fee_percentage" gorm:"default:10"`
	AutoPayoutEnabled   bool      `json:"auto_payout_enabled" gorm:"default:true"`
	MinimumPayoutAmount int64     `json:"minimum_payout_amount" gorm:"default:500"` // centavos
	MasterPixKey        string    `json:"master_pix_key"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (PlatformSettings) TableName() string {
	return "platform_settings"
}

// Validate rejects settings that would break fee computation. Called at
// save time so a bad fee percentage never reaches the engine.
func (s *PlatformSettings) Validate() error {
	if s.FeePercentage < 0 || s.FeePercentage > 100 {
		return money.ErrInvalidFeePercent
	}
	if s.MinimumPayoutAmount < 0 {
		return money.ErrInvalidAmount
	}
	return nil
}

// SettingsRepository defines the contract for platform settings access.
type SettingsRepository interface {
	// Get returns the singleton row, creating it with defaults on first use.
	Get(ctx context.Context) (*PlatformSettings, error)
	Update(ctx context.Context, settings *PlatformSettings) error
}

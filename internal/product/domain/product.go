package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Product categories for digital goods.
const (
	CategorySkin = "skin"
	CategoryMap  = "map"
	CategoryMod  = "mod"
)

var ErrProductNotFound = errors.New("product not found")

// Product represents a digital good listed by a seller. DownloadCount is
// incremented only inside the winning order materialization, never on
// speculative reads.
type Product struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	SellerID      uint           `json:"seller_id" gorm:"not null;index"`
	Name          string         `json:"name" gorm:"not null"`
	Description   string         `json:"description"`
	Category      string         `json:"category" gorm:"index"`
	Price         int64          `json:"price" gorm:"not null"` // centavos
	FileURL       string         `json:"file_url"`
	PreviewURL    string         `json:"preview_url"`
	DownloadCount int64          `json:"download_count" gorm:"default:0"`
	Active        bool           `json:"active" gorm:"default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// ProductRepository defines the contract for product data access.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id uint) (*Product, error)
	FindByIDs(ctx context.Context, ids []uint) ([]Product, error)
	FindAll(ctx context.Context, limit, offset int) ([]Product, error)
	FindByCategory(ctx context.Context, category string, limit, offset int) ([]Product, error)
	FindBySellerID(ctx context.Context, sellerID uint, limit, offset int) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uint) error
	IncrementDownloadCount(ctx context.Context, id uint) error
}

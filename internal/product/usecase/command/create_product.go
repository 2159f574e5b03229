package command

import (
	"context"
	"fmt"

	"github.com/modbay/storefront/internal/product/domain"
)

// CreateProductCommand represents the command to create a new product listing
type CreateProductCommand struct {
	SellerID    uint
	Name        string
	Description string
	Category    string
	Price       int64 // centavos
	FileURL     string
	PreviewURL  string
}

// CreateProductHandler handles product creation command
type CreateProductHandler struct {
	repo domain.ProductRepository
}

// NewCreateProductHandler creates a new create product handler
func NewCreateProductHandler(repo domain.ProductRepository) *CreateProductHandler {
	return &CreateProductHandler{repo: repo}
}

// Handle executes the create product command
func (h *CreateProductHandler) Handle(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	// Validation
	if cmd.Name == "" {
		return nil, fmt.Errorf("product name is required")
	}
	if cmd.Price <= 0 {
		return nil, fmt.Errorf("price must be greater than zero")
	}
	if !validCategory(cmd.Category) {
		return nil, fmt.Errorf("invalid category")
	}
	if cmd.FileURL == "" {
		return nil, fmt.Errorf("file URL is required")
	}

	product := &domain.Product{
		SellerID:    cmd.SellerID,
		Name:        cmd.Name,
		Description: cmd.Description,
		Category:    cmd.Category,
		Price:       cmd.Price,
		FileURL:     cmd.FileURL,
		PreviewURL:  cmd.PreviewURL,
		Active:      true,
	}

	if err := h.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func validCategory(category string) bool {
	switch category {
	case domain.CategorySkin, domain.CategoryMap, domain.CategoryMod:
		return true
	}
	return false
}

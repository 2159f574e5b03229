package command

import (
	"context"
	"fmt"

	"github.com/modbay/storefront/internal/product/domain"
)

// UpdateProductCommand represents the command to update a product listing.
// Zero values are left unchanged, except Active which is always applied.
type UpdateProductCommand struct {
	ID          uint
	SellerID    uint // Caller; must own the product
	Name        string
	Description string
	Price       int64
	PreviewURL  string
	Active      *bool
}

// UpdateProductHandler handles product update command
type UpdateProductHandler struct {
	repo domain.ProductRepository
}

// NewUpdateProductHandler creates a new update product handler
func NewUpdateProductHandler(repo domain.ProductRepository) *UpdateProductHandler {
	return &UpdateProductHandler{repo: repo}
}

// Handle executes the update product command
func (h *UpdateProductHandler) Handle(ctx context.Context, cmd UpdateProductCommand) (*domain.Product, error) {
	product, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}

	if product.SellerID != cmd.SellerID {
		return nil, fmt.Errorf("product belongs to another seller")
	}

	if cmd.Name != "" {
		product.Name = cmd.Name
	}
	if cmd.Description != "" {
		product.Description = cmd.Description
	}
	if cmd.Price > 0 {
		product.Price = cmd.Price
	}
	if cmd.PreviewURL != "" {
		product.PreviewURL = cmd.PreviewURL
	}
	if cmd.Active != nil {
		product.Active = *cmd.Active
	}

	if err := h.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

package command

import (
	"context"
	"fmt"

	"github.com/modbay/storefront/internal/product/domain"
)

// DeleteProductCommand represents the command to delete a product listing
type DeleteProductCommand struct {
	ID       uint
	SellerID uint // Caller; must own the product
	IsAdmin  bool
}

// DeleteProductHandler handles product deletion command
type DeleteProductHandler struct {
	repo domain.ProductRepository
}

// NewDeleteProductHandler creates a new delete product handler
func NewDeleteProductHandler(repo domain.ProductRepository) *DeleteProductHandler {
	return &DeleteProductHandler{repo: repo}
}

// Handle executes the delete product command. Deletion is soft so completed
// orders keep their item references.
func (h *DeleteProductHandler) Handle(ctx context.Context, cmd DeleteProductCommand) error {
	product, err := h.repo.FindByID(ctx, cmd.ID)
	if err != nil {
		return err
	}

	if !cmd.IsAdmin && product.SellerID != cmd.SellerID {
		return fmt.Errorf("product belongs to another seller")
	}

	return h.repo.Delete(ctx, cmd.ID)
}

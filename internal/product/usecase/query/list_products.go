package query

import (
	"context"
	"fmt"

	"github.com/modbay/storefront/internal/product/domain"
)

// ListProductsQuery represents the query to list products in the catalog
type ListProductsQuery struct {
	Limit    int
	Offset   int
	Category string // Optional: filter by category
	SellerID uint   // Optional: filter by seller
}

// ListProductsHandler handles list products query
type ListProductsHandler struct {
	repo domain.ProductRepository
}

// NewListProductsHandler creates a new list products handler
func NewListProductsHandler(repo domain.ProductRepository) *ListProductsHandler {
	return &ListProductsHandler{repo: repo}
}

// Handle executes the list products query
func (h *ListProductsHandler) Handle(ctx context.Context, query ListProductsQuery) ([]domain.Product, error) {
	var products []domain.Product
	var err error

	// Set defaults
	if query.Limit <= 0 {
		query.Limit = 50
	}

	switch {
	case query.SellerID != 0:
		products, err = h.repo.FindBySellerID(ctx, query.SellerID, query.Limit, query.Offset)
	case query.Category != "":
		products, err = h.repo.FindByCategory(ctx, query.Category, query.Limit, query.Offset)
	default:
		products, err = h.repo.FindAll(ctx, query.Limit, query.Offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

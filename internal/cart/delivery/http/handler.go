package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/modbay/storefront/internal/cart/domain"
	productdomain "github.com/modbay/storefront/internal/product/domain"
	userhttp "github.com/modbay/storefront/internal/user/delivery/http"
)

// CartHandler handles HTTP requests for the buyer's cart
type CartHandler struct {
	carts    domain.CartRepository
	products productdomain.ProductRepository
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts domain.CartRepository, products productdomain.ProductRepository) *CartHandler {
	return &CartHandler{carts: carts, products: products}
}

// cartView is the cart rendered with current product data.
type cartView struct {
	Items []cartItemView `json:"items"`
	Total int64          `json:"total"` // centavos
}

type cartItemView struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Price     int64  `json:"price"`
}

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value(userhttp.UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	items, err := h.carts.ListByBuyerID(r.Context(), buyerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	view := cartView{Items: []cartItemView{}}
	if len(items) > 0 {
		ids := make([]uint, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.ProductID)
		}
		products, err := h.products.FindByIDs(r.Context(), ids)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}
		for _, p := range products {
			view.Items = append(view.Items, cartItemView{
				ProductID: p.ID,
				Name:      p.Name,
				Category:  p.Category,
				Price:     p.Price,
			})
			view.Total += p.Price
		}
	}

	respondJSON(w, http.StatusOK, view)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value(userhttp.UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var req struct {
		ProductID uint `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 {
		respondError(w, http.StatusBadRequest, "Product ID is required")
		return
	}

	product, err := h.products.FindByID(r.Context(), req.ProductID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}
	if !product.Active {
		respondError(w, http.StatusBadRequest, "Product is not available")
		return
	}

	if err := h.carts.Add(r.Context(), &domain.CartItem{
		BuyerID:   buyerID,
		ProductID: req.ProductID,
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to add to cart")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"message": "Added to cart"})
}

// RemoveItem handles DELETE /api/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value(userhttp.UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	vars := mux.Vars(r)
	productID, err := strconv.ParseUint(vars["productID"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.carts.Remove(r.Context(), buyerID, uint(productID)); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to remove from cart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Removed from cart"})
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value(userhttp.UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	if err := h.carts.Clear(r.Context(), buyerID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to clear cart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/cart", userhttp.AuthMiddleware(h.GetCart)).Methods("GET")
	router.HandleFunc("/api/cart", userhttp.AuthMiddleware(h.ClearCart)).Methods("DELETE")
	router.HandleFunc("/api/cart/items", userhttp.AuthMiddleware(h.AddItem)).Methods("POST")
	router.HandleFunc("/api/cart/items/{productID:[0-9]+}", userhttp.AuthMiddleware(h.RemoveItem)).Methods("DELETE")
}

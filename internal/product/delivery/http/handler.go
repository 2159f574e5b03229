package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/modbay/storefront/internal/product/domain"
	"github.com/modbay/storefront/internal/product/usecase/command"
	"github.com/modbay/storefront/internal/product/usecase/query"
)

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	// Command handlers
	createHandler *command.CreateProductHandler
	updateHandler *command.UpdateProductHandler
	deleteHandler *command.DeleteProductHandler

	// Query handlers
	getHandler  *query.GetProductHandler
	listHandler *query.ListProductsHandler
}

// NewProductHandler creates a new product handler
func NewProductHandler(repo domain.ProductRepository) *ProductHandler {
	return &ProductHandler{
		createHandler: command.NewCreateProductHandler(repo),
		updateHandler: command.NewUpdateProductHandler(repo),
		deleteHandler: command.NewDeleteProductHandler(repo),
		getHandler:    query.NewGetProductHandler(repo),
		listHandler:   query.NewListProductsHandler(repo),
	}
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	q := query.ListProductsQuery{
		Limit:    limit,
		Offset:   offset,
		Category: r.URL.Query().Get("category"),
	}

	products, err := h.listHandler.Handle(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	product, err := h.getHandler.Handle(r.Context(), query.GetProductQuery{ID: uint(id)})
	if err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// ListMyProducts handles GET /api/products/mine (seller)
func (h *ProductHandler) ListMyProducts(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := r.Context().Value(UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	products, err := h.listHandler.Handle(r.Context(), query.ListProductsQuery{
		Limit:    limit,
		Offset:   offset,
		SellerID: sellerID,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    len(products),
	})
}

// CreateProduct handles POST /api/products (seller)
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := r.Context().Value(UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Price       int64  `json:"price"`
		FileURL     string `json:"file_url"`
		PreviewURL  string `json:"preview_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.createHandler.Handle(r.Context(), command.CreateProductCommand{
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		FileURL:     req.FileURL,
		PreviewURL:  req.PreviewURL,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/{id} (seller)
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := r.Context().Value(UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       int64  `json:"price"`
		PreviewURL  string `json:"preview_url"`
		Active      *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.updateHandler.Handle(r.Context(), command.UpdateProductCommand{
		ID:          uint(id),
		SellerID:    sellerID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		PreviewURL:  req.PreviewURL,
		Active:      req.Active,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/{id} (seller or admin)
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := r.Context().Value(UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	role, _ := r.Context().Value(RoleKey).(string)

	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.deleteHandler.Handle(r.Context(), command.DeleteProductCommand{
		ID:       uint(id),
		SellerID: sellerID,
		IsAdmin:  role == "admin",
	}); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(router *mux.Router) {
	// Public catalog
	router.HandleFunc("/api/products", h.ListProducts).Methods("GET")
	router.HandleFunc("/api/products/mine", SellerMiddleware(h.ListMyProducts)).Methods("GET")
	router.HandleFunc("/api/products/{id:[0-9]+}", h.GetProduct).Methods("GET")

	// Seller listing management
	router.HandleFunc("/api/products", SellerMiddleware(h.CreateProduct)).Methods("POST")
	router.HandleFunc("/api/products/{id:[0-9]+}", SellerMiddleware(h.UpdateProduct)).Methods("PUT")
	router.HandleFunc("/api/products/{id:[0-9]+}", SellerMiddleware(h.DeleteProduct)).Methods("DELETE")
}

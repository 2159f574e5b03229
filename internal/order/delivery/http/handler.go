package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/modbay/storefront/internal/order/domain"
	productdomain "github.com/modbay/storefront/internal/product/domain"
	userhttp "github.com/modbay/storefront/internal/user/delivery/http"
)

// OrderHandler handles HTTP requests for orders and purchased-file downloads
type OrderHandler struct {
	orders   domain.OrderRepository
	products productdomain.ProductRepository
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders domain.OrderRepository, products productdomain.ProductRepository) *OrderHandler {
	return &OrderHandler{orders: orders, products: products}
}

// GetMyOrders handles GET /api/orders/my
func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value(userhttp.UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	orders, err := h.orders.FindByBuyerID(r.Context(), buyerID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  len(orders),
	})
}

// GetOrder handles GET /api/orders/{id}. Visible to the buyer, the seller
// and admins.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(userhttp.UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}
	role, _ := r.Context().Value(userhttp.RoleKey).(string)

	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := h.orders.FindByID(r.Context(), uint(id))
	if err != nil {
		respondError(w, http.StatusNotFound, "Order not found")
		return
	}

	if order.BuyerID != userID && order.SellerID != userID && role != "admin" {
		respondError(w, http.StatusForbidden, "Not your order")
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Download handles GET /api/downloads/{token}. The token is minted once at
// order completion; it stops working at its expiry.
func (h *OrderHandler) Download(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value(userhttp.UserIDKey).(uint)
	if !ok {
		respondError(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	vars := mux.Vars(r)
	order, err := h.orders.FindByDownloadToken(r.Context(), vars["token"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Download not found")
		return
	}

	if order.BuyerID != buyerID {
		respondError(w, http.StatusForbidden, "Not your download")
		return
	}
	if order.DownloadExpiresAt != nil && time.Now().After(*order.DownloadExpiresAt) {
		respondError(w, http.StatusGone, "Download link expired")
		return
	}

	ids := make([]uint, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := h.products.FindByIDs(r.Context(), ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load files")
		return
	}

	type fileView struct {
		ProductID uint   `json:"product_id"`
		Name      string `json:"name"`
		FileURL   string `json:"file_url"`
	}
	files := make([]fileView, 0, len(products))
	for _, p := range products {
		files = append(files, fileView{ProductID: p.ID, Name: p.Name, FileURL: p.FileURL})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order_id": order.ID,
		"files":    files,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/orders/my", userhttp.AuthMiddleware(h.GetMyOrders)).Methods("GET")
	router.HandleFunc("/api/orders/{id:[0-9]+}", userhttp.AuthMiddleware(h.GetOrder)).Methods("GET")
	router.HandleFunc("/api/downloads/{token}", userhttp.AuthMiddleware(h.Download)).Methods("GET")
}

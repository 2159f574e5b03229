package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/modbay/storefront/internal/payout"
	"github.com/modbay/storefront/internal/payout/domain"
	userhttp "github.com/modbay/storefront/internal/user/delivery/http"
)

// PayoutHandler handles HTTP requests for seller payouts (admin only)
type PayoutHandler struct {
	repo      domain.PayoutRepository
	scheduler *payout.Scheduler
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(repo domain.PayoutRepository, scheduler *payout.Scheduler) *PayoutHandler {
	return &PayoutHandler{repo: repo, scheduler: scheduler}
}

// ListPayouts handles GET /admin/payouts
func (h *PayoutHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 50
	}

	payouts, err := h.repo.FindAll(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list payouts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"payouts": payouts,
		"total":   len(payouts),
	})
}

// RetryPayout handles POST /admin/payouts/{id}/retry
func (h *PayoutHandler) RetryPayout(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payout ID")
		return
	}

	retried, err := h.scheduler.Retry(r.Context(), uint(id))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, retried)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers all payout routes
func (h *PayoutHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/payouts", userhttp.AdminMiddleware(h.ListPayouts)).Methods("GET")
	router.HandleFunc("/admin/payouts/{id:[0-9]+}/retry", userhttp.AdminMiddleware(h.RetryPayout)).Methods("POST")
}

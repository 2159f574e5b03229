package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/modbay/storefront/internal/settings/domain"
	userhttp "github.com/modbay/storefront/internal/user/delivery/http"
)

// SettingsHandler handles HTTP requests for platform settings (admin only)
type SettingsHandler struct {
	repo domain.SettingsRepository
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(repo domain.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{repo: repo}
}

// GetSettings handles GET /admin/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.Get(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /admin/settings. Fee changes only affect
// payments reconciled after the update; completed orders keep their split.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeePercentage       *float64 `json:"fee_percentage"`
		AutoPayoutEnabled   *bool    `json:"auto_payout_enabled"`
		MinimumPayoutAmount *int64   `json:"minimum_payout_amount"`
		MasterPixKey        *string  `json:"master_pix_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.repo.Get(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}

	if req.FeePercentage != nil {
		settings.FeePercentage = *req.FeePercentage
	}
	if req.AutoPayoutEnabled != nil {
		settings.AutoPayoutEnabled = *req.AutoPayoutEnabled
	}
	if req.MinimumPayoutAmount != nil {
		settings.MinimumPayoutAmount = *req.MinimumPayoutAmount
	}
	if req.MasterPixKey != nil {
		settings.MasterPixKey = *req.MasterPixKey
	}

	if err := h.repo.Update(r.Context(), settings); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers all settings routes
func (h *SettingsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/settings", userhttp.AdminMiddleware(h.GetSettings)).Methods("GET")
	router.HandleFunc("/admin/settings", userhttp.AdminMiddleware(h.UpdateSettings)).Methods("PUT")
}

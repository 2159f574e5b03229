package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/modbay/storefront/internal/payment/domain"
	"github.com/modbay/storefront/internal/payment/ratelimit"
	"github.com/modbay/storefront/internal/payment/reconcile"
	productdomain "github.com/modbay/storefront/internal/product/domain"
	"github.com/modbay/storefront/pkg/logger"
)

// webhookTopicPayment is the provider topic for payment notifications.
// Other topics (merchant orders, chargebacks) share the endpoint but carry
// no id worth reconciling.
const webhookTopicPayment = "payment"

// PaymentHandler exposes the PIX payment surface: checkout creation, status
// polling and the provider webhook.
type PaymentHandler struct {
	engine        *reconcile.Engine
	limiter       ratelimit.Limiter
	webhookSecret string
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(engine *reconcile.Engine, limiter ratelimit.Limiter, webhookSecret string) *PaymentHandler {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	return &PaymentHandler{
		engine:        engine,
		limiter:       limiter,
		webhookSecret: webhookSecret,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateCheckout handles POST /api/payments/pix
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := r.Context().Value(UserIDKey).(uint)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, Response{
			Success: false,
			Error:   "User ID not found in context",
		})
		return
	}

	ctx := r.Context()
	allowed, retryAfter, err := h.limiter.Allow(ctx, strconv.FormatUint(uint64(buyerID), 10))
	if err != nil {
		// A broken limiter must not block checkouts.
		logger.Warn(ctx).Err(err).Msg("Rate limiter unavailable, allowing request")
	} else if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		respondJSON(w, http.StatusTooManyRequests, Response{
			Success: false,
			Error:   "Too many payment attempts. Please try again later.",
		})
		return
	}

	var req struct {
		ProductIDs  []uint `json:"product_ids"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	checkout, err := h.engine.CreateCheckout(ctx, buyerID, req.ProductIDs, req.Description)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, productdomain.ErrProductNotFound):
			status = http.StatusNotFound
		case errors.Is(err, reconcile.ErrEmptyCheckout),
			errors.Is(err, reconcile.ErrMixedSellers),
			errors.Is(err, reconcile.ErrProductUnavailable):
			status = http.StatusBadRequest
		default:
			logger.Error(ctx).Err(err).Uint("buyer_id", buyerID).Msg("Failed to create checkout")
			status = http.StatusInternalServerError
		}
		respondJSON(w, status, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Payment created successfully",
		Data:    checkout,
	})
}

// GetPaymentStatus handles GET /api/payments/pix/{externalID}/status.
// Polling is a reconciliation channel, not a cache read: every call runs the
// full reconcile pass, so if the webhook never arrives the buyer's own
// polling completes the order.
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	externalID := vars["externalID"]

	outcome, err := h.engine.Reconcile(r.Context(), externalID)
	if err != nil {
		if errors.Is(err, domain.ErrIntentNotFound) {
			respondJSON(w, http.StatusNotFound, Response{
				Success: false,
				Error:   "Payment not found",
			})
			return
		}
		logger.Error(r.Context()).Err(err).Str("external_id", externalID).
			Msg("Failed to reconcile payment")
		respondJSON(w, http.StatusInternalServerError, Response{
			Success: false,
			Error:   "Failed to check payment status",
		})
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]interface{}{
			"status":  statusForOutcome(outcome),
			"outcome": outcome,
		},
	})
}

// HandleWebhook handles POST /api/payments/webhook. The provider retries on
// non-200, so the response is 200 regardless of processing result and the
// actual status is settled by reconciliation, never trusted from the payload.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondJSON(w, http.StatusOK, Response{Success: true})
		return
	}

	h.checkSignature(r, body)

	var payload struct {
		Topic      string `json:"topic"`
		ExternalID string `json:"external_id"`
		Data       struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Warn(ctx).Err(err).Msg("Webhook payload is not valid JSON")
		respondJSON(w, http.StatusOK, Response{Success: true})
		return
	}

	// The provider multiplexes topics onto one endpoint; only payment
	// notifications trigger reconciliation. No topic means a direct payment
	// push.
	if payload.Topic != "" && payload.Topic != webhookTopicPayment {
		logger.Debug(ctx).Str("topic", payload.Topic).Msg("Ignoring non-payment webhook topic")
		respondJSON(w, http.StatusOK, Response{Success: true})
		return
	}

	externalID := payload.ExternalID
	if externalID == "" {
		externalID = payload.Data.ID
	}
	if externalID == "" {
		logger.Warn(ctx).Msg("Webhook payload carries no payment id")
		respondJSON(w, http.StatusOK, Response{Success: true})
		return
	}

	outcome, err := h.engine.Reconcile(ctx, externalID)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("external_id", externalID).
			Msg("Webhook reconciliation failed")
		respondJSON(w, http.StatusOK, Response{Success: true})
		return
	}

	logger.Info(ctx).
		Str("external_id", externalID).
		Str("outcome", string(outcome)).
		Msg("Webhook reconciled")

	respondJSON(w, http.StatusOK, Response{Success: true})
}

// checkSignature verifies the provider HMAC when a secret is configured. The
// check is advisory: a mismatch is logged but the webhook is still processed,
// since reconciliation never trusts the payload anyway.
func (h *PaymentHandler) checkSignature(r *http.Request, body []byte) {
	if h.webhookSecret == "" {
		return
	}

	signature := r.Header.Get("X-Signature")
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if signature == "" || !hmac.Equal([]byte(signature), []byte(expected)) {
		logger.Warn(r.Context()).
			Str("remote_addr", r.RemoteAddr).
			Msg("Webhook signature mismatch")
	}
}

func statusForOutcome(outcome reconcile.Outcome) string {
	switch outcome {
	case reconcile.OutcomeNewlyCompleted, reconcile.OutcomeAlreadyCompleted:
		return domain.StatusApproved
	case reconcile.OutcomeRejected:
		return domain.StatusRejected
	default:
		return domain.StatusPending
	}
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	// Authenticated buyer routes
	router.HandleFunc("/api/payments/pix", AuthMiddleware(h.CreateCheckout)).Methods("POST")
	router.HandleFunc("/api/payments/pix/{externalID}/status", AuthMiddleware(h.GetPaymentStatus)).Methods("GET")

	// Provider webhook (no auth, signature checked in the handler)
	router.HandleFunc("/api/payments/webhook", h.HandleWebhook).Methods("POST")
}

// RegisterHealthCheck registers health check endpoint
func (h *PaymentHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Storefront service is healthy",
		})
	}).Methods("GET")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	orderdomain "github.com/modbay/storefront/internal/order/domain"
	"github.com/modbay/storefront/internal/payment/domain"
	"github.com/modbay/storefront/internal/payment/ratelimit"
	"github.com/modbay/storefront/internal/payment/reconcile"
	"github.com/modbay/storefront/pkg/auth"
)

// Empty stores are enough for the routing-level behavior under test: every
// lookup misses, so reconciliation reports unknown payments.
type emptyOrderRepo struct{}

func (emptyOrderRepo) CreateAwaitingPayment(ctx context.Context, order *orderdomain.Order) error {
	return nil
}

func (emptyOrderRepo) FindByID(ctx context.Context, id uint) (*orderdomain.Order, error) {
	return nil, orderdomain.ErrOrderNotFound
}

func (emptyOrderRepo) FindByPaymentExternalID(ctx context.Context, externalID string) (*orderdomain.Order, error) {
	return nil, orderdomain.ErrOrderNotFound
}

func (emptyOrderRepo) FindByBuyerID(ctx context.Context, buyerID uint, limit, offset int) ([]orderdomain.Order, error) {
	return nil, nil
}

func (emptyOrderRepo) FindByDownloadToken(ctx context.Context, token string) (*orderdomain.Order, error) {
	return nil, orderdomain.ErrOrderNotFound
}

func (emptyOrderRepo) Materialize(ctx context.Context, params orderdomain.MaterializeParams) (bool, *orderdomain.Order, error) {
	return false, nil, orderdomain.ErrOrderNotFound
}

func (emptyOrderRepo) MarkFailed(ctx context.Context, externalID string) error { return nil }

func (emptyOrderRepo) UpdateSellerPaymentStatus(ctx context.Context, orderID uint, status string) error {
	return nil
}

type emptyIntentRepo struct{}

func (emptyIntentRepo) Create(ctx context.Context, intent *domain.PaymentIntent) error { return nil }

func (emptyIntentRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	return nil, domain.ErrIntentNotFound
}

func (emptyIntentRepo) UpdateStatus(ctx context.Context, externalID, status string) error {
	return nil
}

func (emptyIntentRepo) MarkMaterialized(ctx context.Context, externalID string, at time.Time) error {
	return nil
}

// countingIntentRepo records how many lookups reconciliation performed, so
// tests can tell whether a webhook actually triggered a reconcile pass.
type countingIntentRepo struct {
	emptyIntentRepo
	lookups int
}

func (r *countingIntentRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	r.lookups++
	return nil, domain.ErrIntentNotFound
}

type denyingLimiter struct{}

func (denyingLimiter) Allow(ctx context.Context, subject string) (bool, int, error) {
	return false, 42, nil
}

func newTestRouter(t *testing.T, h *PaymentHandler) *mux.Router {
	t.Helper()
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func newEmptyHandler(limiter ratelimit.Limiter) *PaymentHandler {
	engine := reconcile.NewEngine(nil, emptyIntentRepo{}, emptyOrderRepo{}, nil, nil, nil, nil, nil, nil)
	return NewPaymentHandler(engine, limiter, "")
}

func TestWebhookAlwaysReturns200(t *testing.T) {
	router := newTestRouter(t, newEmptyHandler(nil))

	tests := []struct {
		name string
		body string
	}{
		{"unknown payment id", `{"external_id":"charge-missing"}`},
		{"nested provider shape", `{"data":{"id":"charge-missing"}}`},
		{"no payment id", `{"event":"payment.updated"}`},
		{"invalid json", `{not json`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook",
				bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("webhook must always return 200, got %d", rec.Code)
			}
		})
	}
}

func TestWebhookReconcilesOnlyPaymentTopic(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantLookups int
	}{
		{"payment topic", `{"topic":"payment","data":{"id":"charge-1"}}`, 1},
		{"no topic", `{"data":{"id":"charge-1"}}`, 1},
		{"merchant order topic", `{"topic":"merchant_order","data":{"id":"charge-1"}}`, 0},
		{"chargeback topic", `{"topic":"chargeback","external_id":"charge-1"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := &countingIntentRepo{}
			engine := reconcile.NewEngine(nil, intents, emptyOrderRepo{}, nil, nil, nil, nil, nil, nil)
			router := newTestRouter(t, NewPaymentHandler(engine, nil, ""))

			req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook",
				bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("webhook must always return 200, got %d", rec.Code)
			}
			if intents.lookups != tt.wantLookups {
				t.Errorf("expected %d reconcile lookups, got %d", tt.wantLookups, intents.lookups)
			}
		})
	}
}

func TestCreateCheckoutRequiresAuth(t *testing.T) {
	router := newTestRouter(t, newEmptyHandler(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/payments/pix",
		bytes.NewBufferString(`{"product_ids":[1]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/payments/pix",
		bytes.NewBufferString(`{"product_ids":[1]}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestCreateCheckoutRateLimited(t *testing.T) {
	router := newTestRouter(t, newEmptyHandler(denyingLimiter{}))

	token, err := auth.GenerateToken(5, "buyer", "buyer")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/pix",
		bytes.NewBufferString(`{"product_ids":[1]}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "42" {
		t.Errorf("expected Retry-After 42, got %q", got)
	}
}

func TestGetPaymentStatusUnknownID(t *testing.T) {
	router := newTestRouter(t, newEmptyHandler(nil))

	token, err := auth.GenerateToken(5, "buyer", "buyer")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/payments/pix/charge-missing/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown payment, got %d", rec.Code)
	}
}

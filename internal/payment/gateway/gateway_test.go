package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modbay/storefront/internal/payment/domain"
)

type memIntentRepo struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
}

func newMemIntentRepo() *memIntentRepo {
	return &memIntentRepo{intents: make(map[string]*domain.PaymentIntent)}
}

func (m *memIntentRepo) Create(ctx context.Context, intent *domain.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ExternalID] = intent
	return nil
}

func (m *memIntentRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent, ok := m.intents[externalID]
	if !ok {
		return nil, domain.ErrIntentNotFound
	}
	copy := *intent
	return &copy, nil
}

func (m *memIntentRepo) UpdateStatus(ctx context.Context, externalID, status string) error {
	return nil
}

func (m *memIntentRepo) MarkMaterialized(ctx context.Context, externalID string, at time.Time) error {
	return nil
}

func TestSimulatorCreateIntent(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sim := NewSimulator(newMemIntentRepo(), func() time.Time { return t0 })

	intent, err := sim.CreateIntent(context.Background(), CreateIntentRequest{
		Amount:      1000,
		Description: "Neon Skin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(intent.ExternalID, SimulatedIDPrefix) {
		t.Errorf("expected %s prefix, got %q", SimulatedIDPrefix, intent.ExternalID)
	}
	if !intent.Simulated {
		t.Error("expected simulated flag")
	}
	if intent.PixCode == "" {
		t.Error("expected a pix code")
	}
	if !intent.ExpiresAt.Equal(t0.Add(defaultChargeTTL)) {
		t.Errorf("expected expiry %v, got %v", t0.Add(defaultChargeTTL), intent.ExpiresAt)
	}

	// Same id and amount must render the same code on repeated reads.
	if mockPixCode(intent.ExternalID, 1000) != mockPixCode(intent.ExternalID, 1000) {
		t.Error("mock pix code must be deterministic")
	}
}

func TestSimulatorStatusMatures(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemIntentRepo()
	now := t0
	sim := NewSimulator(repo, func() time.Time { return now })

	repo.Create(context.Background(), &domain.PaymentIntent{
		ExternalID: "sim_test",
		Amount:     1000,
		CreatedAt:  t0,
		ExpiresAt:  t0.Add(30 * time.Minute),
	})

	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"just created", 0, domain.StatusPending},
		{"before maturation", 10 * time.Second, domain.StatusPending},
		{"one second short", 29 * time.Second, domain.StatusPending},
		{"at maturation", 30 * time.Second, domain.StatusApproved},
		{"after maturation", 31 * time.Second, domain.StatusApproved},
		{"just before expiry", 30*time.Minute - time.Second, domain.StatusApproved},
		{"past expiry", 30*time.Minute + time.Second, domain.StatusExpired},
		{"long after expiry", 2 * time.Hour, domain.StatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = t0.Add(tt.elapsed)
			status, err := sim.FetchStatus(context.Background(), "sim_test")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tt.want {
				t.Errorf("at +%v expected %s, got %s", tt.elapsed, tt.want, status)
			}
		})
	}
}

func TestSimulatorStatusDeterministic(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemIntentRepo()
	sim := NewSimulator(repo, func() time.Time { return t0.Add(45 * time.Second) })

	repo.Create(context.Background(), &domain.PaymentIntent{
		ExternalID: "sim_test",
		CreatedAt:  t0,
		ExpiresAt:  t0.Add(30 * time.Minute),
	})

	for i := 0; i < 3; i++ {
		status, err := sim.FetchStatus(context.Background(), "sim_test")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status != domain.StatusApproved {
			t.Errorf("read %d: expected approved, got %s", i, status)
		}
	}
}

func TestSimulatorUnknownIntent(t *testing.T) {
	sim := NewSimulator(newMemIntentRepo(), nil)

	_, err := sim.FetchStatus(context.Background(), "sim_missing")
	if err == nil {
		t.Error("expected error for unknown simulated intent")
	}
}

func TestResilientFallsBackOnCreateFailure(t *testing.T) {
	// Provider that always fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pix := NewPixClient(srv.URL, "test-key")
	client := NewResilientClient(pix, NewSimulator(newMemIntentRepo(), nil))

	intent, err := client.CreateIntent(context.Background(), CreateIntentRequest{
		Amount:      1000,
		Description: "Desert Map",
	})
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	if !intent.Simulated {
		t.Error("expected a simulated intent after provider failure")
	}
	if !strings.HasPrefix(intent.ExternalID, SimulatedIDPrefix) {
		t.Errorf("expected simulated id, got %q", intent.ExternalID)
	}
}

func TestResilientNilProviderSimulatesEverything(t *testing.T) {
	client := NewResilientClient(nil, NewSimulator(newMemIntentRepo(), nil))

	intent, err := client.CreateIntent(context.Background(), CreateIntentRequest{Amount: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !intent.Simulated {
		t.Error("expected simulated intent when provider is unconfigured")
	}
}

func TestResilientStatusErrorMapsToPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pix := NewPixClient(srv.URL, "test-key")
	client := NewResilientClient(pix, NewSimulator(newMemIntentRepo(), nil))

	status, err := client.FetchStatus(context.Background(), "charge-1")
	if err != nil {
		t.Fatalf("transport errors must not surface: %v", err)
	}
	if status != domain.StatusPending {
		t.Errorf("expected pending on provider error, got %s", status)
	}
}

func TestResilientRoutesSimulatedIDs(t *testing.T) {
	// Provider that would answer approved; it must never be consulted for
	// simulated ids.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]string{"id": "charge-1", "status": "approved"},
		})
	}))
	defer srv.Close()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemIntentRepo()
	repo.Create(context.Background(), &domain.PaymentIntent{
		ExternalID: "sim_test",
		CreatedAt:  t0,
		ExpiresAt:  t0.Add(30 * time.Minute),
	})

	pix := NewPixClient(srv.URL, "test-key")
	sim := NewSimulator(repo, func() time.Time { return t0.Add(5 * time.Second) })
	client := NewResilientClient(pix, sim)

	status, err := client.FetchStatus(context.Background(), "sim_test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.StatusPending {
		t.Errorf("simulated id must use the simulator clock, got %s", status)
	}
}

func TestPixClientStatusMapping(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"approved", domain.StatusApproved},
		{"paid", domain.StatusApproved},
		{"confirmed", domain.StatusApproved},
		{"pending", domain.StatusPending},
		{"rejected", domain.StatusRejected},
		{"cancelled", domain.StatusRejected},
		{"expired", domain.StatusExpired},
		{"something-new", domain.StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"data": map[string]string{"id": "charge-1", "status": tt.provider},
				})
			}))
			defer srv.Close()

			pix := NewPixClient(srv.URL, "test-key")
			status, err := pix.FetchStatus(context.Background(), "charge-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tt.want {
				t.Errorf("provider %q: expected %s, got %s", tt.provider, tt.want, status)
			}
		})
	}
}

package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modbay/storefront/internal/payment/domain"
)

// SimulatedIDPrefix marks intents issued by the simulator. The prefix exists
// so the gateway can route status lookups; business logic never branches on it.
const SimulatedIDPrefix = "sim_"

// maturationDelay stands in for real-world payer action: a simulated charge
// is approved once this much time has passed since creation.
const maturationDelay = 30 * time.Second

// Simulator issues locally generated intents and approves them on a fixed
// clock. It backs the system when the PIX provider is down or unconfigured.
type Simulator struct {
	intents domain.IntentRepository
	now     func() time.Time
}

// NewSimulator creates a simulator reading intent creation times from the
// intent store. now is injectable for tests; pass nil for the wall clock.
func NewSimulator(intents domain.IntentRepository, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{intents: intents, now: now}
}

// CreateIntent fabricates a charge with a locally generated external id and
// a deterministic mock payment code.
func (s *Simulator) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	externalID := SimulatedIDPrefix + uuid.New().String()
	createdAt := s.now()

	pixCode := mockPixCode(externalID, req.Amount)

	return &Intent{
		ExternalID: externalID,
		PixCode:    pixCode,
		QRCode:     base64.StdEncoding.EncodeToString([]byte(pixCode)),
		Simulated:  true,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(defaultChargeTTL),
	}, nil
}

// FetchStatus derives the status purely from elapsed time since creation:
// expired past the charge deadline, approved after the maturation delay,
// pending otherwise. The same inputs always produce the same answer. Expiry
// wins over maturation, so a charge nobody reconciled within its TTL lapses
// instead of approving late.
func (s *Simulator) FetchStatus(ctx context.Context, externalID string) (string, error) {
	intent, err := s.intents.FindByExternalID(ctx, externalID)
	if err != nil {
		return "", err
	}

	now := s.now()
	if !intent.ExpiresAt.IsZero() && now.After(intent.ExpiresAt) {
		return domain.StatusExpired, nil
	}
	if now.Sub(intent.CreatedAt) >= maturationDelay {
		return domain.StatusApproved, nil
	}
	return domain.StatusPending, nil
}

// mockPixCode builds an EMV-looking copy-and-paste code. Deterministic for a
// given external id and amount so repeated reads render the same code.
func mockPixCode(externalID string, amount int64) string {
	return fmt.Sprintf("00020126580014br.gov.bcb.pix0136%s52040000530398654%02d%d.%02d5802BR",
		externalID, len(fmt.Sprintf("%d", amount/100))+3, amount/100, amount%100)
}

package gateway

import (
	"context"
	"strings"

	"github.com/modbay/storefront/internal/payment/domain"
	"github.com/modbay/storefront/pkg/logger"
)

// ResilientClient fronts the real provider with the simulator. Intent
// creation falls back to the simulator when the provider fails; status
// lookups degrade to "pending" on transport errors so an unknown outcome is
// always treated as "not yet" rather than "failed".
type ResilientClient struct {
	pix       *PixClient // nil when the provider is unconfigured
	simulator *Simulator
}

// NewResilientClient selects the backend once at construction. pix may be
// nil, in which case every intent is simulated.
func NewResilientClient(pix *PixClient, simulator *Simulator) *ResilientClient {
	return &ResilientClient{pix: pix, simulator: simulator}
}

// CreateIntent tries the provider first and transparently falls back to a
// simulated intent. Callers cannot distinguish the two by type.
func (c *ResilientClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	if c.pix == nil {
		logger.Debug(ctx).Msg("PIX provider not configured, issuing simulated intent")
		return c.simulator.CreateIntent(ctx, req)
	}

	intent, err := c.pix.CreateIntent(ctx, req)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Int64("amount", req.Amount).
			Msg("PIX provider unavailable, falling back to simulated intent")
		return c.simulator.CreateIntent(ctx, req)
	}
	return intent, nil
}

// FetchStatus routes simulated ids to the simulator and everything else to
// the provider. Provider transport errors map to pending: under-reporting
// completion is recoverable on the next poll, over-reporting is not.
func (c *ResilientClient) FetchStatus(ctx context.Context, externalID string) (string, error) {
	if strings.HasPrefix(externalID, SimulatedIDPrefix) {
		return c.simulator.FetchStatus(ctx, externalID)
	}

	if c.pix == nil {
		return domain.StatusPending, nil
	}

	status, err := c.pix.FetchStatus(ctx, externalID)
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("external_id", externalID).
			Msg("Status lookup failed, treating as pending")
		return domain.StatusPending, nil
	}
	return status, nil
}

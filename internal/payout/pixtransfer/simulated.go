package pixtransfer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/modbay/storefront/pkg/logger"
)

// Simulated stands in for the transfer API when no PIX credentials are
// configured. Every transfer succeeds immediately with a synthetic id.
type Simulated struct{}

func NewSimulated() *Simulated {
	return &Simulated{}
}

func (s *Simulated) Transfer(ctx context.Context, pixKey string, amount int64, description string) (string, error) {
	transferID := fmt.Sprintf("sim_tr_%s", uuid.New().String())

	logger.Info(ctx).
		Str("transfer_id", transferID).
		Int64("amount", amount).
		Msg("Simulated PIX transfer")

	return transferID, nil
}

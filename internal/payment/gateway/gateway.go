// Package gateway talks to the external PIX provider and, when the provider
// is unreachable or unconfigured, to a local simulator. Callers get a single
// Client capability and never branch on which backend produced a status.
package gateway

import (
	"context"
	"time"
)

// CreateIntentRequest carries the inputs for a new payment intent.
type CreateIntentRequest struct {
	Amount      int64 // centavos
	Description string
	PayerEmail  string
}

// Intent is the provider-side (or simulated) view of a created charge.
type Intent struct {
	ExternalID string
	PixCode    string
	QRCode     string
	Simulated  bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Client is the payment gateway capability consumed by the reconciliation
// engine. FetchStatus returns one of the domain statuses; transport failures
// surface as "pending", never as an error the caller could mistake for a
// terminal state.
type Client interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	FetchStatus(ctx context.Context, externalID string) (string, error)
}

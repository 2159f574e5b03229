// Package reconcile implements the payment reconciliation engine: the
// idempotent procedure that inspects payment status and materializes a
// confirmed payment into a completed order exactly once.
//
// Both the client polling path and the provider webhook call Reconcile, in
// any order, any number of times, possibly concurrently from separate
// processes. The only cross-process guard is the order store's unique
// payment_external_id plus its conditional status transition; the engine
// holds no locks.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modbay/storefront/internal/money"
	notifdomain "github.com/modbay/storefront/internal/notification/domain"
	orderdomain "github.com/modbay/storefront/internal/order/domain"
	"github.com/modbay/storefront/internal/payment/domain"
	"github.com/modbay/storefront/internal/payment/gateway"
	productdomain "github.com/modbay/storefront/internal/product/domain"
	settingsdomain "github.com/modbay/storefront/internal/settings/domain"
	userdomain "github.com/modbay/storefront/internal/user/domain"
	"github.com/modbay/storefront/kafka"
	"github.com/modbay/storefront/pkg/logger"
)

// Outcome is the result of one reconciliation pass.
type Outcome string

const (
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeNewlyCompleted   Outcome = "newly_completed"
	OutcomeStillPending     Outcome = "still_pending"
	OutcomeRejected         Outcome = "rejected"
)

// downloadTokenTTL is how long a buyer can fetch their files after purchase.
const downloadTokenTTL = 7 * 24 * time.Hour

var (
	ErrEmptyCheckout      = errors.New("checkout requires at least one product")
	ErrMixedSellers       = errors.New("all products in a checkout must belong to the same seller")
	ErrProductUnavailable = errors.New("product is not available for purchase")
)

// PayoutScheduler is the post-commit payout step.
type PayoutScheduler interface {
	Schedule(ctx context.Context, order *orderdomain.Order) error
}

// Engine drives intent creation and reconciliation.
type Engine struct {
	gateway   gateway.Client
	intents   domain.IntentRepository
	orders    orderdomain.OrderRepository
	products  productdomain.ProductRepository
	users     userdomain.UserRepository
	settings  settingsdomain.SettingsRepository
	payouts   PayoutScheduler
	notifier  notifdomain.Sink
	publisher *kafka.Publisher
}

func NewEngine(
	gw gateway.Client,
	intents domain.IntentRepository,
	orders orderdomain.OrderRepository,
	products productdomain.ProductRepository,
	users userdomain.UserRepository,
	settings settingsdomain.SettingsRepository,
	payouts PayoutScheduler,
	notifier notifdomain.Sink,
	publisher *kafka.Publisher,
) *Engine {
	return &Engine{
		gateway:   gw,
		intents:   intents,
		orders:    orders,
		products:  products,
		users:     users,
		settings:  settings,
		payouts:   payouts,
		notifier:  notifier,
		publisher: publisher,
	}
}

// Checkout is what the buyer needs to complete a PIX payment.
type Checkout struct {
	ExternalID string    `json:"external_id"`
	PixCode    string    `json:"pix_code"`
	QRCode     string    `json:"qr_code,omitempty"`
	Amount     int64     `json:"amount"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CreateCheckout prices the requested products, creates a payment intent
// with the gateway and records the awaiting_payment order that the intent
// will materialize into.
func (e *Engine) CreateCheckout(ctx context.Context, buyerID uint, productIDs []uint, description string) (*Checkout, error) {
	if len(productIDs) == 0 {
		return nil, ErrEmptyCheckout
	}

	buyer, err := e.users.FindByID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find buyer: %w", err)
	}

	products, err := e.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	if len(products) != len(productIDs) {
		return nil, productdomain.ErrProductNotFound
	}

	var (
		total    int64
		sellerID uint
		items    []orderdomain.OrderItem
	)
	for _, p := range products {
		if !p.Active {
			return nil, ErrProductUnavailable
		}
		if sellerID == 0 {
			sellerID = p.SellerID
		} else if p.SellerID != sellerID {
			return nil, ErrMixedSellers
		}
		total += p.Price
		items = append(items, orderdomain.OrderItem{ProductID: p.ID, Price: p.Price})
	}
	if total <= 0 {
		return nil, money.ErrInvalidAmount
	}

	if description == "" {
		description = fmt.Sprintf("%s purchase (%d items)", products[0].Name, len(products))
	}

	intent, err := e.gateway.CreateIntent(ctx, gateway.CreateIntentRequest{
		Amount:      total,
		Description: description,
		PayerEmail:  buyer.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	backend := "pix"
	if intent.Simulated {
		backend = "simulated"
	}
	intentsCreated.WithLabelValues(backend).Inc()

	record := &domain.PaymentIntent{
		ExternalID:  intent.ExternalID,
		BuyerID:     buyerID,
		Amount:      total,
		Description: description,
		PixCode:     intent.PixCode,
		QRCode:      intent.QRCode,
		Status:      domain.StatusPending,
		Simulated:   intent.Simulated,
		ExpiresAt:   intent.ExpiresAt,
	}
	if err := e.intents.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist payment intent: %w", err)
	}

	order := &orderdomain.Order{
		BuyerID:           buyerID,
		SellerID:          sellerID,
		Items:             items,
		Amount:            total,
		PaymentExternalID: intent.ExternalID,
	}
	if err := e.orders.CreateAwaitingPayment(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logger.Info(ctx).
		Str("external_id", intent.ExternalID).
		Uint("buyer_id", buyerID).
		Int64("amount", total).
		Bool("simulated", intent.Simulated).
		Msg("Payment intent created")

	return &Checkout{
		ExternalID: intent.ExternalID,
		PixCode:    intent.PixCode,
		QRCode:     intent.QRCode,
		Amount:     total,
		ExpiresAt:  intent.ExpiresAt,
	}, nil
}

// Reconcile inspects the payment status behind externalID and, when the
// payment is approved, materializes the order exactly once. Safe to call
// any number of times from any channel; only the materialization winner
// observes OutcomeNewlyCompleted and fires side effects.
func (e *Engine) Reconcile(ctx context.Context, externalID string) (Outcome, error) {
	// Idempotency short circuit: a completed order means everything,
	// including side effects, already happened.
	order, err := e.orders.FindByPaymentExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, orderdomain.ErrOrderNotFound) {
		return "", fmt.Errorf("failed to look up order: %w", err)
	}
	if order != nil && order.Status == orderdomain.StatusCompleted {
		reconcileOutcomes.WithLabelValues(string(OutcomeAlreadyCompleted)).Inc()
		return OutcomeAlreadyCompleted, nil
	}

	intent, err := e.intents.FindByExternalID(ctx, externalID)
	if err != nil {
		return "", err
	}

	status, err := e.gateway.FetchStatus(ctx, externalID)
	if err != nil {
		// The gateway maps transport errors to pending itself; anything
		// surfacing here is a missing simulated intent or similar.
		return "", fmt.Errorf("failed to fetch payment status: %w", err)
	}

	switch status {
	case domain.StatusPending:
		reconcileOutcomes.WithLabelValues(string(OutcomeStillPending)).Inc()
		return OutcomeStillPending, nil

	case domain.StatusRejected, domain.StatusExpired:
		if err := e.intents.UpdateStatus(ctx, externalID, status); err != nil {
			logger.Warn(ctx).Err(err).Str("external_id", externalID).
				Msg("Failed to record terminal intent status")
		}
		if err := e.orders.MarkFailed(ctx, externalID); err != nil {
			logger.Warn(ctx).Err(err).Str("external_id", externalID).
				Msg("Failed to mark order failed")
		}
		reconcileOutcomes.WithLabelValues(string(OutcomeRejected)).Inc()
		return OutcomeRejected, nil

	case domain.StatusApproved:
		return e.materialize(ctx, intent)

	default:
		return "", fmt.Errorf("unknown payment status %q", status)
	}
}

// materialize performs the approved path. The conditional transition inside
// Materialize admits exactly one winner; losers see already_completed.
func (e *Engine) materialize(ctx context.Context, intent *domain.PaymentIntent) (Outcome, error) {
	settings, err := e.settings.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load platform settings: %w", err)
	}

	platformFee, sellerAmount, err := money.Split(intent.Amount, settings.FeePercentage)
	if err != nil {
		return "", fmt.Errorf("failed to split amount: %w", err)
	}

	won, order, err := e.orders.Materialize(ctx, orderdomain.MaterializeParams{
		PaymentExternalID: intent.ExternalID,
		PlatformFee:       platformFee,
		SellerAmount:      sellerAmount,
		DownloadToken:     uuid.New().String(),
		DownloadExpiresAt: time.Now().Add(downloadTokenTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to materialize order: %w", err)
	}

	if !won {
		reconcileOutcomes.WithLabelValues(string(OutcomeAlreadyCompleted)).Inc()
		return OutcomeAlreadyCompleted, nil
	}

	// Winner-only, post-commit side effects. Failures are logged but never
	// unwind the completed order.
	now := time.Now()
	if err := e.intents.UpdateStatus(ctx, intent.ExternalID, domain.StatusApproved); err != nil {
		logger.Warn(ctx).Err(err).Str("external_id", intent.ExternalID).
			Msg("Failed to record approved intent status")
	}
	if err := e.intents.MarkMaterialized(ctx, intent.ExternalID, now); err != nil {
		logger.Warn(ctx).Err(err).Str("external_id", intent.ExternalID).
			Msg("Failed to mark intent materialized")
	}

	if err := e.payouts.Schedule(ctx, order); err != nil {
		logger.Error(ctx).Err(err).Uint("order_id", order.ID).
			Msg("Payout scheduling failed")
	}

	if e.notifier != nil {
		if err := e.notifier.Send(ctx, order.BuyerID, "Payment confirmed",
			fmt.Sprintf("Your order #%d is ready to download.", order.ID)); err != nil {
			logger.Warn(ctx).Err(err).Uint("buyer_id", order.BuyerID).
				Msg("Failed to send purchase notification")
		}
	}

	if e.publisher != nil {
		event := kafka.OrderCompletedEvent{
			OrderID:           order.ID,
			BuyerID:           order.BuyerID,
			SellerID:          order.SellerID,
			PaymentExternalID: order.PaymentExternalID,
			Amount:            order.Amount,
			PlatformFee:       order.PlatformFee,
			SellerAmount:      order.SellerAmount,
		}
		if err := e.publisher.PublishOrderCompleted(ctx, event); err != nil {
			logger.Warn(ctx).Err(err).Uint("order_id", order.ID).
				Msg("Failed to publish order completed event")
		}
	}

	logger.Info(ctx).
		Str("external_id", intent.ExternalID).
		Uint("order_id", order.ID).
		Int64("platform_fee", platformFee).
		Int64("seller_amount", sellerAmount).
		Msg("Order materialized")

	reconcileOutcomes.WithLabelValues(string(OutcomeNewlyCompleted)).Inc()
	return OutcomeNewlyCompleted, nil
}

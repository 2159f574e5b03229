// Package payout creates and dispatches seller payouts for completed orders.
// A payout is created exactly once per order; dispatch failures are recorded
// for manual retry and never touch the buyer-facing order state.
package payout

import (
	"context"
	"errors"
	"fmt"

	notifdomain "github.com/modbay/storefront/internal/notification/domain"
	orderdomain "github.com/modbay/storefront/internal/order/domain"
	"github.com/modbay/storefront/internal/payout/domain"
	settingsdomain "github.com/modbay/storefront/internal/settings/domain"
	userdomain "github.com/modbay/storefront/internal/user/domain"
	"github.com/modbay/storefront/pkg/logger"
)

// TransferClient is the PIX funds-transfer capability.
type TransferClient interface {
	Transfer(ctx context.Context, pixKey string, amount int64, description string) (transferID string, err error)
}

// Scheduler owns SellerPayout records.
type Scheduler struct {
	payouts   domain.PayoutRepository
	orders    orderdomain.OrderRepository
	users     userdomain.UserRepository
	settings  settingsdomain.SettingsRepository
	transfers TransferClient
	notifier  notifdomain.Sink
}

func NewScheduler(
	payouts domain.PayoutRepository,
	orders orderdomain.OrderRepository,
	users userdomain.UserRepository,
	settings settingsdomain.SettingsRepository,
	transfers TransferClient,
	notifier notifdomain.Sink,
) *Scheduler {
	return &Scheduler{
		payouts:   payouts,
		orders:    orders,
		users:     users,
		settings:  settings,
		transfers: transfers,
		notifier:  notifier,
	}
}

// Schedule creates the payout for a freshly materialized order and, when
// auto payout applies, dispatches it immediately. Called only by the
// reconciliation winner, and idempotent anyway thanks to the unique order_id.
func (s *Scheduler) Schedule(ctx context.Context, order *orderdomain.Order) error {
	if order.SellerAmount <= 0 {
		return nil
	}

	payout := &domain.SellerPayout{
		SellerID: order.SellerID,
		OrderID:  order.ID,
		Amount:   order.SellerAmount,
		Status:   domain.StatusPending,
	}
	created, existing, err := s.payouts.CreateForOrder(ctx, payout)
	if err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}
	if !created {
		logger.Debug(ctx).
			Uint("order_id", order.ID).
			Uint("payout_id", existing.ID).
			Msg("Payout already exists for order")
		return nil
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		// Payout stays pending; an admin can dispatch it later.
		logger.Error(ctx).Err(err).Uint("order_id", order.ID).
			Msg("Failed to load settings, payout left pending")
		return nil
	}

	if !settings.AutoPayoutEnabled || payout.Amount < settings.MinimumPayoutAmount {
		logger.Info(ctx).
			Uint("order_id", order.ID).
			Int64("amount", payout.Amount).
			Bool("auto_payout_enabled", settings.AutoPayoutEnabled).
			Int64("minimum_payout_amount", settings.MinimumPayoutAmount).
			Msg("Payout created, auto dispatch skipped")
		return nil
	}

	s.dispatch(ctx, payout, order)
	return nil
}

// Retry re-dispatches a failed payout. Admin action.
func (s *Scheduler) Retry(ctx context.Context, payoutID uint) (*domain.SellerPayout, error) {
	payout, err := s.payouts.FindByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status == domain.StatusSent {
		return nil, errors.New("payout already sent")
	}

	order, err := s.orders.FindByID(ctx, payout.OrderID)
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, payout, order)
	return s.payouts.FindByID(ctx, payoutID)
}

// dispatch attempts the funds transfer. Failure marks the payout failed and
// leaves the order's seller payment pending for manual retry; the order
// itself stays completed regardless.
func (s *Scheduler) dispatch(ctx context.Context, payout *domain.SellerPayout, order *orderdomain.Order) {
	seller, err := s.users.FindByID(ctx, order.SellerID)
	if err != nil || seller.PixKey == "" {
		logger.Warn(ctx).
			Err(err).
			Uint("seller_id", order.SellerID).
			Uint("payout_id", payout.ID).
			Msg("Seller has no PIX key, payout left pending")
		return
	}

	description := fmt.Sprintf("Payout for order #%d", order.ID)
	transferID, err := s.transfers.Transfer(ctx, seller.PixKey, payout.Amount, description)
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Uint("payout_id", payout.ID).
			Uint("order_id", order.ID).
			Msg("Payout dispatch failed")
		if markErr := s.payouts.MarkFailed(ctx, payout.ID); markErr != nil {
			logger.Error(ctx).Err(markErr).Uint("payout_id", payout.ID).
				Msg("Failed to record payout failure")
		}
		return
	}

	if err := s.payouts.MarkSent(ctx, payout.ID, transferID); err != nil {
		logger.Error(ctx).Err(err).Uint("payout_id", payout.ID).
			Str("transfer_id", transferID).
			Msg("Transfer sent but payout status update failed")
		return
	}
	if err := s.orders.UpdateSellerPaymentStatus(ctx, order.ID, orderdomain.SellerPaymentSent); err != nil {
		logger.Error(ctx).Err(err).Uint("order_id", order.ID).
			Msg("Failed to update order seller payment status")
	}

	logger.Info(ctx).
		Uint("payout_id", payout.ID).
		Uint("order_id", order.ID).
		Int64("amount", payout.Amount).
		Str("transfer_id", transferID).
		Msg("Payout dispatched")

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, order.SellerID, "Payout sent",
			fmt.Sprintf("Your share of R$%d.%02d for order #%d is on its way.",
				payout.Amount/100, payout.Amount%100, order.ID)); err != nil {
			logger.Warn(ctx).Err(err).Uint("seller_id", order.SellerID).
				Msg("Failed to send payout notification")
		}
	}
}

//go:build wireinject
// +build wireinject

package payment

import (
	"github.com/google/wire"
	"gorm.io/gorm"

	notifdomain "github.com/modbay/storefront/internal/notification/domain"
	orderdomain "github.com/modbay/storefront/internal/order/domain"
	orderrepo "github.com/modbay/storefront/internal/order/repository"
	"github.com/modbay/storefront/internal/payment/domain"
	"github.com/modbay/storefront/internal/payment/gateway"
	"github.com/modbay/storefront/internal/payment/handler"
	"github.com/modbay/storefront/internal/payment/ratelimit"
	"github.com/modbay/storefront/internal/payment/reconcile"
	"github.com/modbay/storefront/internal/payment/repository"
	"github.com/modbay/storefront/internal/payout"
	payoutdomain "github.com/modbay/storefront/internal/payout/domain"
	payoutrepo "github.com/modbay/storefront/internal/payout/repository"
	productdomain "github.com/modbay/storefront/internal/product/domain"
	productrepo "github.com/modbay/storefront/internal/product/repository"
	settingsdomain "github.com/modbay/storefront/internal/settings/domain"
	settingsrepo "github.com/modbay/storefront/internal/settings/repository"
	userdomain "github.com/modbay/storefront/internal/user/domain"
	userrepo "github.com/modbay/storefront/internal/user/repository"
	"github.com/modbay/storefront/kafka"
)

// WebhookSecret distinguishes the webhook HMAC secret from other strings in
// the dependency graph.
type WebhookSecret string

// Repository providers
func ProvideIntentRepository(db *gorm.DB) domain.IntentRepository {
	return repository.NewGormIntentRepository(db)
}

func ProvideOrderRepository(db *gorm.DB) orderdomain.OrderRepository {
	return orderrepo.NewGormOrderRepositoryWithTracing(db)
}

func ProvideProductRepository(db *gorm.DB) productdomain.ProductRepository {
	return productrepo.NewGormProductRepository(db)
}

func ProvideUserRepository(db *gorm.DB) userdomain.UserRepository {
	return userrepo.NewGormUserRepository(db)
}

func ProvideSettingsRepository(db *gorm.DB) settingsdomain.SettingsRepository {
	return settingsrepo.NewGormSettingsRepository(db)
}

func ProvidePayoutRepository(db *gorm.DB) payoutdomain.PayoutRepository {
	return payoutrepo.NewGormPayoutRepository(db)
}

// Engine providers
func ProvidePayoutScheduler(
	payouts payoutdomain.PayoutRepository,
	orders orderdomain.OrderRepository,
	users userdomain.UserRepository,
	settings settingsdomain.SettingsRepository,
	transfers payout.TransferClient,
	notifier notifdomain.Sink,
) reconcile.PayoutScheduler {
	return payout.NewScheduler(payouts, orders, users, settings, transfers, notifier)
}

func ProvideHandler(engine *reconcile.Engine, limiter ratelimit.Limiter, secret WebhookSecret) *handler.PaymentHandler {
	return handler.NewPaymentHandler(engine, limiter, string(secret))
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideIntentRepository,
	ProvideOrderRepository,
	ProvideProductRepository,
	ProvideUserRepository,
	ProvideSettingsRepository,
	ProvidePayoutRepository,
)

var EngineSet = wire.NewSet(
	ProvidePayoutScheduler,
	reconcile.NewEngine,
)

// InitializeHandler initializes the payment handler with all dependencies
func InitializeHandler(
	db *gorm.DB,
	gw gateway.Client,
	limiter ratelimit.Limiter,
	transfers payout.TransferClient,
	notifier notifdomain.Sink,
	publisher *kafka.Publisher,
	secret WebhookSecret,
) (*handler.PaymentHandler, error) {
	wire.Build(
		RepositorySet,
		EngineSet,
		ProvideHandler,
	)
	return nil, nil
}

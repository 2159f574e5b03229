package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	carthttp "github.com/modbay/storefront/internal/cart/delivery/http"
	cartdomain "github.com/modbay/storefront/internal/cart/domain"
	cartrepository "github.com/modbay/storefront/internal/cart/repository"
	notification "github.com/modbay/storefront/internal/notification"
	notifhttp "github.com/modbay/storefront/internal/notification/delivery/http"
	notifdomain "github.com/modbay/storefront/internal/notification/domain"
	notifrepository "github.com/modbay/storefront/internal/notification/repository"
	orderhttp "github.com/modbay/storefront/internal/order/delivery/http"
	orderdomain "github.com/modbay/storefront/internal/order/domain"
	orderrepository "github.com/modbay/storefront/internal/order/repository"
	"github.com/modbay/storefront/internal/payment"
	paymentdomain "github.com/modbay/storefront/internal/payment/domain"
	"github.com/modbay/storefront/internal/payment/gateway"
	"github.com/modbay/storefront/internal/payment/handler"
	"github.com/modbay/storefront/internal/payment/ratelimit"
	paymentrepository "github.com/modbay/storefront/internal/payment/repository"
	"github.com/modbay/storefront/internal/payout"
	payouthttp "github.com/modbay/storefront/internal/payout/delivery/http"
	payoutdomain "github.com/modbay/storefront/internal/payout/domain"
	"github.com/modbay/storefront/internal/payout/pixtransfer"
	payoutrepository "github.com/modbay/storefront/internal/payout/repository"
	producthttp "github.com/modbay/storefront/internal/product/delivery/http"
	productdomain "github.com/modbay/storefront/internal/product/domain"
	productrepository "github.com/modbay/storefront/internal/product/repository"
	settingshttp "github.com/modbay/storefront/internal/settings/delivery/http"
	settingsdomain "github.com/modbay/storefront/internal/settings/domain"
	settingsrepository "github.com/modbay/storefront/internal/settings/repository"
	userhttp "github.com/modbay/storefront/internal/user/delivery/http"
	userdomain "github.com/modbay/storefront/internal/user/domain"
	userrepository "github.com/modbay/storefront/internal/user/repository"
	"github.com/modbay/storefront/kafka"
	"github.com/modbay/storefront/pkg/database"
	"github.com/modbay/storefront/pkg/logger"
	"github.com/modbay/storefront/pkg/tracing"
)

func main() {
	// Initialize logger
	serviceName := getEnv("OTEL_SERVICE_NAME", "storefront")
	isDevelopment := getEnv("ENVIRONMENT", "development") == "development"
	logger.Init(serviceName, isDevelopment)

	logLevel := getEnv("LOG_LEVEL", "info")
	logger.SetLevel(logLevel)

	logger.Logger.Info().
		Str("service", serviceName).
		Str("environment", getEnv("ENVIRONMENT", "development")).
		Str("log_level", logLevel).
		Msg("Starting storefront service")

	// Initialize tracer
	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	// Load database configuration
	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "storefront"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Connect to database
	db, err := database.NewGormConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&userdomain.User{},
		&productdomain.Product{},
		&cartdomain.CartItem{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&paymentdomain.PaymentIntent{},
		&payoutdomain.SellerPayout{},
		&settingsdomain.PlatformSettings{},
		&notifdomain.Notification{},
	); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	// Payment gateway: real PIX client when credentials are configured,
	// simulator otherwise. The resilient client also falls back per request.
	intentRepo := paymentrepository.NewGormIntentRepository(db)
	var pixClient *gateway.PixClient
	pixAPIURL := getEnv("PIX_API_URL", "")
	if pixAPIURL != "" {
		pixClient = gateway.NewPixClient(pixAPIURL, getEnv("PIX_API_KEY", ""))
		logger.Logger.Info().Str("base_url", pixAPIURL).Msg("PIX gateway configured")
	} else {
		logger.Logger.Warn().Msg("PIX_API_URL not set, all payments will be simulated")
	}
	gw := gateway.NewResilientClient(pixClient, gateway.NewSimulator(intentRepo, nil))

	// Funds transfers share the provider credentials with the gateway.
	var transfers payout.TransferClient
	if pixAPIURL != "" {
		transfers = pixtransfer.NewClient(pixAPIURL, getEnv("PIX_API_KEY", ""))
	} else {
		transfers = pixtransfer.NewSimulated()
	}

	// Checkout rate limiting via Redis, disabled when no address is set.
	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if redisAddr := getEnv("REDIS_ADDR", ""); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: getEnv("REDIS_PASSWORD", ""),
		})
		limiter = ratelimit.NewRedisLimiter(
			redisClient,
			"storefront:rate_limit",
			getEnvInt("CHECKOUT_RATE_LIMIT", 10),
			time.Duration(getEnvInt("CHECKOUT_RATE_WINDOW_SECONDS", 60))*time.Second,
		)
		logger.Logger.Info().Str("addr", redisAddr).Msg("Redis rate limiter configured")
	}

	// Notifications go through Kafka when brokers are configured, otherwise
	// straight to the store.
	notifRepo := notifrepository.NewGormNotificationRepository(db)
	var notifier notifdomain.Sink = notification.NewStoreSink(notifRepo)
	var publisher *kafka.Publisher
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		publisher, err = kafka.NewPublisher(strings.Split(brokers, ","))
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka publisher")
		}
		defer publisher.Close()
		notifier = notification.NewKafkaSink(publisher)
	}

	// Initialize the payment handler with Wire DI
	webhookSecret := payment.WebhookSecret(getEnv("PIX_WEBHOOK_SECRET", ""))
	paymentHandler, err := payment.InitializeHandler(db, gw, limiter, transfers, notifier, publisher, webhookSecret)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize payment handler")
	}

	// Remaining repositories and handlers
	userRepo := userrepository.NewGormUserRepository(db)
	productRepo := productrepository.NewGormProductRepository(db)
	cartRepo := cartrepository.NewGormCartRepository(db)
	orderRepo := orderrepository.NewGormOrderRepositoryWithTracing(db)
	payoutRepo := payoutrepository.NewGormPayoutRepository(db)
	settingsRepo := settingsrepository.NewGormSettingsRepository(db)

	payoutScheduler := payout.NewScheduler(payoutRepo, orderRepo, userRepo, settingsRepo, transfers, notifier)

	userHandler := userhttp.NewUserHandler(userRepo)
	productHandler := producthttp.NewProductHandler(productRepo)
	cartHandler := carthttp.NewCartHandler(cartRepo, productRepo)
	orderHandler := orderhttp.NewOrderHandler(orderRepo, productRepo)
	settingsHandler := settingshttp.NewSettingsHandler(settingsRepo)
	payoutHandler := payouthttp.NewPayoutHandler(payoutRepo, payoutScheduler)
	notifHandler := notifhttp.NewNotificationHandler(notifRepo)

	logger.Logger.Info().Msg("Handlers initialized")

	// Start HTTP server
	httpPort := getEnv("HTTP_PORT", "8080")
	go startHTTPServer(httpPort, sqlDB, paymentHandler,
		userHandler, productHandler, cartHandler, orderHandler,
		settingsHandler, payoutHandler, notifHandler)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
}

type routeRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

func startHTTPServer(port string, db *sql.DB, paymentHandler *handler.PaymentHandler, handlers ...routeRegistrar) {
	// Setup router
	router := mux.NewRouter()

	// Register all middlewares using middleware registration system
	handler.RegisterMiddlewares(router, handler.DefaultMiddlewareConfig())

	// Register routes
	paymentHandler.RegisterRoutes(router)
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	// Health check endpoint
	paymentHandler.RegisterHealthCheck(router, db)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	logger.Logger.Info().
		Str("port", port).
		Str("metrics_endpoint", "/metrics").
		Msg("HTTP server started")

	if err := http.ListenAndServe(":"+port, c.Handler(router)); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

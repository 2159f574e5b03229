package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	notifdomain "github.com/modbay/storefront/internal/notification/domain"
	notifrepository "github.com/modbay/storefront/internal/notification/repository"
	"github.com/modbay/storefront/kafka"
	"github.com/modbay/storefront/pkg/database"
	"github.com/modbay/storefront/pkg/logger"
	"github.com/modbay/storefront/pkg/tracing"
)

// The notifier worker drains the notifications topic and persists each event
// for users to read. Inserts are idempotent by event id, so redeliveries
// after a rebalance are harmless.
func main() {
	serviceName := getEnv("OTEL_SERVICE_NAME", "storefront-notifier")
	isDevelopment := getEnv("ENVIRONMENT", "development") == "development"
	logger.Init(serviceName, isDevelopment)
	logger.SetLevel(getEnv("LOG_LEVEL", "info"))

	logger.Logger.Info().
		Str("service", serviceName).
		Msg("Starting notifier worker")

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

	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "storefront"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	db, err := database.NewGormConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(&notifdomain.Notification{}); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	repo := notifrepository.NewGormNotificationRepository(db)

	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	groupID := getEnv("KAFKA_GROUP_ID", "storefront-notifier")

	consumer, err := kafka.NewConsumer(brokers, groupID, []string{kafka.TopicNotifications},
		func(ctx context.Context, event kafka.NotificationRequestedEvent) error {
			return repo.Insert(ctx, &notifdomain.Notification{
				EventID: event.EventID,
				UserID:  event.UserID,
				Title:   event.Title,
				Message: event.Message,
			})
		})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create Kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to start consumer")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down notifier...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

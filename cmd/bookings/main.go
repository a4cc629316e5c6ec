package main

import (
	"context"
	"os"

	bookinghandler "campbook/internal/bookings/handler"
	bookingrepo "campbook/internal/bookings/repository"
	bookingservice "campbook/internal/bookings/service"
	bookingvalidator "campbook/internal/bookings/validator"
	"campbook/internal/outbox"
	paymenthandler "campbook/internal/payments/handler"
	paymentrepo "campbook/internal/payments/repository"
	paymentservice "campbook/internal/payments/service"
	paymentvalidator "campbook/internal/payments/validator"
	userhandler "campbook/internal/users/handler"
	userrepo "campbook/internal/users/repository"
	userservice "campbook/internal/users/service"
	uservalidator "campbook/internal/users/validator"
	"campbook/pkg/app"
	"campbook/pkg/config"
	"campbook/pkg/contracts"
	"campbook/pkg/db/postgres"
	"campbook/pkg/kafka"
	kafkamiddleware "campbook/pkg/kafka/middleware"
	"campbook/pkg/metrics"
	"campbook/pkg/tracing"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetPostgres()
	cfg.SetRedis()
	tracing.Init()
	m := metrics.New()

	cfg.Log.Info("Starting Bookings service")

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Kafka.EventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafkamiddleware.MetricsProducerMiddleware(m))
	}

	store := outbox.NewStore(cfg.Client.Postgres)
	publisher := outbox.NewPublisher(producer, store, outbox.PublisherConfig{
		Source:      ServiceName,
		MaxAttempts: cfg.Kafka.ProducerMaxAttempts,
		BackoffMin:  cfg.Kafka.ProducerBackoffMin,
		BackoffMax:  cfg.Kafka.ProducerBackoffMax,
	}, cfg.Log, m)
	relay := outbox.NewRelay(cfg.Log, store, publisher, outbox.RelayConfig{
		ID:          relayID(),
		BatchSize:   cfg.OutboxBatchSize,
		Interval:    cfg.OutboxPollInterval,
		Lease:       cfg.OutboxLease,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})

	txm := postgres.NewTransactionManager(cfg.Client.Postgres, store, publisher, cfg.Log, cfg.ReservationTxTimeout)

	serverApp := app.NewApplication(cfg, m)
	serverApp.AddCheck("postgres", cfg.Client.Postgres.Ping)
	serverApp.AddCheck("redis", func(ctx context.Context) error { return cfg.Client.Redis.Ping(ctx).Err() })
	serverApp.AddWorker("outbox-relay", relay.Run)
	serverApp.SetApp(initHandlers(cfg, txm, m)...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, txm postgres.TransactionManager, m *metrics.Metrics) []contracts.Handler {
	db := cfg.Client.Postgres

	bookingService := bookingservice.NewBookingService(
		db,
		txm,
		bookingrepo.NewPostgresBookingRepository(),
		bookingvalidator.NewBookingValidator(cfg.Log),
		m,
		cfg.Log,
	)
	paymentService := paymentservice.NewPaymentService(
		db,
		txm,
		paymentrepo.NewPostgresPaymentRepository(),
		paymentvalidator.NewPaymentValidator(cfg.Log),
		cfg.Log,
	)
	userService := userservice.NewUserService(
		db,
		txm,
		userrepo.NewPostgresUserRepository(),
		uservalidator.NewUserValidator(),
		cfg.Log,
	)

	cfg.Log.Info("Services initialized")
	return []contracts.Handler{
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentService, cfg.Log),
		userhandler.NewUserHandler(userService, cfg.Log),
	}
}

func relayID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return ServiceName
	}
	return ServiceName + "@" + host
}

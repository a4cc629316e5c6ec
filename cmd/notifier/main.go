package main

import (
	"context"

	analyticshandler "campbook/internal/analytics/handler"
	analyticsrepo "campbook/internal/analytics/repository"
	"campbook/internal/events"
	notificationhandler "campbook/internal/notifications/handler"
	"campbook/internal/notifications/notifier"
	notificationrepo "campbook/internal/notifications/repository"
	"campbook/pkg/app"
	"campbook/pkg/config"
	mongotx "campbook/pkg/db/mongo"
	"campbook/pkg/idempotency"
	"campbook/pkg/kafka"
	kafkamiddleware "campbook/pkg/kafka/middleware"
	"campbook/pkg/metrics"
	"campbook/pkg/tracing"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetPostgres()
	cfg.SetRedis()
	cfg.SetMongo()
	tracing.Init()
	m := metrics.New()

	cfg.Log.Info("Starting Notifier service")

	dispatcher := events.NewDispatcher(cfg.Log, m,
		notificationhandler.NewNotificationHandler(
			notificationrepo.NewPostgresDirectory(cfg.Client.Postgres),
			notifier.NewLogNotifier(cfg.Log),
			idempotency.NewStore(cfg.Client.Redis, "notification", cfg.NotificationDedupeTTL),
			cfg.Log,
		),
		analyticshandler.NewActivityHandler(
			analyticsrepo.NewMongoActivityRepository(
				cfg.Client.Mongo.Database(cfg.MongoDatabaseName),
				mongotx.NewTransactionManager(cfg.Client.Mongo, cfg.WriteTimeout),
			),
			cfg.Log,
		),
	)

	serverApp := app.NewApplication(cfg, m)
	serverApp.AddCheck("postgres", cfg.Client.Postgres.Ping)
	serverApp.AddCheck("redis", func(ctx context.Context) error { return cfg.Client.Redis.Ping(ctx).Err() })
	serverApp.AddCheck("mongo", func(ctx context.Context) error { return cfg.Client.Mongo.Ping(ctx, nil) })
	serverApp.AddWorker("event-consumer", func(ctx context.Context) error {
		kafka.Supervise(ctx, cfg.Log, "event-consumer", cfg.Kafka.ConsumerRestartBackoff, func(ctx context.Context) error {
			return consume(ctx, cfg, m, dispatcher)
		})
		return nil
	})
	serverApp.SetApp()
	serverApp.Run()
}

// consume runs one consumer lifetime. A fresh reader is built per run so a
// restart rejoins the group cleanly.
func consume(ctx context.Context, cfg *config.Config, m *metrics.Metrics, dispatcher *events.Dispatcher) error {
	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.EventsTopic, cfg.Kafka.ConsumerGroup, cfg.Kafka.DLQTopic, dispatcher.Handle, cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka consumer", "error", err)
		}
	}()

	if cfg.Kafka.EnableMiddleware {
		consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafkamiddleware.MetricsConsumerMiddleware(m))
	}
	return consumer.Start(ctx)
}

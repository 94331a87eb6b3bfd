package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/db"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
	"github.com/pawcircle/pawcircle-backend/pkg/migrate"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox/registry"
	"github.com/pawcircle/pawcircle-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	requeue := flag.String("requeue", "", "move a dead-lettered event id back into the outbox and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": cfg.Service.Kind})

	if *requeue != "" {
		err = requeueEvent(ctx, cfg, logg, *requeue)
	} else {
		err = run(ctx, cfg, logg)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer pubsubClient.Close()

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}

	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Registry:      eventRegistry,
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "topics", eventRegistry.Topics()), "starting outbox publisher")
	err = service.Run(ctx)
	logg.Info(ctx, "outbox publisher shutting down")
	return err
}

// requeueEvent is the operator path for an event parked in outbox_dlq once its cause is fixed.
func requeueEvent(ctx context.Context, cfg *config.Config, logg *logger.Logger, rawID string) error {
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid -requeue event id %q: %w", rawID, err)
	}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	dlq := outbox.NewDLQRepository(dbClient.DB())
	if err := dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return dlq.RequeueTx(ctx, tx, eventID)
	}); err != nil {
		return fmt.Errorf("requeue %s: %w", eventID, err)
	}
	logg.Info(logg.WithField(ctx, "event_id", eventID.String()), "dead-lettered event requeued")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/pawcircle/pawcircle-backend/internal/cron"
	"github.com/pawcircle/pawcircle-backend/internal/notifications"
	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/db"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
	"github.com/pawcircle/pawcircle-backend/pkg/migrate"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox"
	"github.com/pawcircle/pawcircle-backend/pkg/redis"
)

const (
	serviceName = "cron-worker"
	minLockTTL  = time.Minute
)

func main() {
	boot := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		boot.Error(context.Background(), "failed to load config", err)
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
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Maintenance.Interval.String(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	lockKey := redisClient.LockKey(serviceName, lockEnv(cfg.App.Env))
	lock, err := redis.NewRedisLock(redisClient, lockKey, lockTTL(cfg.Maintenance.Interval))
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	registry, err := buildRegistry(cfg, logg, dbClient, jobMetrics)
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Maintenance.Interval,
		JobTimeout: cfg.Maintenance.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

// buildRegistry registers one retention job per pruned table, in run order.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, jobMetrics *metrics.JobMetrics) (*cron.Registry, error) {
	params := func(days int) cron.RetentionJobParams {
		return cron.RetentionJobParams{Logger: logg, DB: dbClient, Metrics: jobMetrics, RetentionDays: days}
	}
	conn := dbClient.DB()

	outboxJob, err := cron.NewOutboxRetentionJob(params(cfg.Maintenance.OutboxRetentionDays), outbox.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("outbox retention: %w", err)
	}
	inboxJob, err := cron.NewNotificationRetentionJob(params(cfg.Maintenance.NotificationRetentionDays), notifications.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("notification retention: %w", err)
	}
	return cron.NewRegistry(outboxJob, inboxJob)
}

// lockTTL holds the lock for half a cycle so a crashed holder frees it before the next tick.
func lockTTL(interval time.Duration) time.Duration {
	return max(interval/2, minLockTTL)
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

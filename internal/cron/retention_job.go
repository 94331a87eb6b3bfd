package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
)

const (
	OutboxRetentionJobName       = "outbox_retention"
	NotificationRetentionJobName = "notification_retention"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// deleteFunc removes rows older than cutoff inside tx and reports how many went.
type deleteFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type notificationPruner interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// RetentionJobParams configure a retention job.
type RetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Metrics       *metrics.JobMetrics
	RetentionDays int
	Now           func() time.Time
}

type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	metrics   *metrics.JobMetrics
	retention time.Duration
	now       func() time.Time
	remove    deleteFunc
}

// NewOutboxRetentionJob prunes outbox rows that were published more than RetentionDays ago.
func NewOutboxRetentionJob(params RetentionJobParams, repo outboxPruner) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return newRetentionJob(OutboxRetentionJobName, params, repo.DeletePublishedBefore)
}

// NewNotificationRetentionJob prunes notifications the user read more than RetentionDays ago.
func NewNotificationRetentionJob(params RetentionJobParams, repo notificationPruner) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	return newRetentionJob(NotificationRetentionJobName, params, repo.DeleteReadBefore)
}

func newRetentionJob(name string, params RetentionJobParams, remove deleteFunc) (*retentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.RetentionDays <= 0 {
		return nil, fmt.Errorf("%s: retention days must be positive", name)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &retentionJob{
		name:      name,
		logg:      params.Logger,
		db:        params.DB,
		metrics:   params.Metrics,
		retention: time.Duration(params.RetentionDays) * 24 * time.Hour,
		now:       now,
		remove:    remove,
	}, nil
}

func (j *retentionJob) Name() string {
	return j.name
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.remove(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.metrics.AddRowsDeleted(j.name, deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff.Format(time.RFC3339),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "retention sweep complete")
	return nil
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
)

const (
	defaultInterval   = 24 * time.Hour
	defaultJobTimeout = 10 * time.Minute
)

// Lock guards a cycle so only one cron-worker replica runs the jobs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	// JobTimeout bounds each job; zero means defaultJobTimeout.
	JobTimeout time.Duration
}

// Service runs every registered job once per interval, starting immediately.
type Service struct {
	logg       *logger.Logger
	jobs       *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

// Report summarizes one cycle. Skipped is set when another replica held the lock.
type Report struct {
	Skipped bool
	Ran     int
	Failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	jobs := params.Registry
	if jobs == nil {
		jobs = &Registry{}
	}
	return &Service{
		logg:       params.Logger,
		jobs:       jobs,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   durationOr(params.Interval, defaultInterval),
		jobTimeout: durationOr(params.JobTimeout, defaultJobTimeout),
	}, nil
}

// Run blocks until ctx is canceled and returns ctx.Err().
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		report, err := s.runCycle(ctx)
		if err != nil {
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{
				"jobs_run":    report.Ran,
				"jobs_failed": report.Failed,
			}), "cron cycle finished with failures", err)
		}

		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle runs every job under the lock. A failing job does not stop the ones after it;
// their errors are combined in the returned error.
func (s *Service) runCycle(ctx context.Context) (Report, error) {
	var report Report

	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !held {
		report.Skipped = true
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return report, nil
	}
	defer func() {
		// release even when ctx was canceled mid-cycle, otherwise the key lives out its ttl
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "cron lock release failed")
		}
	}()

	var errs error
	for _, job := range s.jobs.Jobs() {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		report.Ran++
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			report.Failed = append(report.Failed, job.Name())
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	return report, errs
}

func (s *Service) runJob(ctx context.Context, job Job) (err error) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	jobCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
		elapsed := time.Since(started)
		s.metrics.ObserveRun(job.Name(), elapsed, err)
		doneCtx := s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
		if err != nil {
			s.logg.Error(doneCtx, "cron job failed", err)
			return
		}
		s.logg.Info(doneCtx, "cron job finished")
	}()

	return job.Run(jobCtx)
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

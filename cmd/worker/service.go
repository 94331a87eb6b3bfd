package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

const (
	defaultReadyTimeout = 30 * time.Second
	readyRetryInterval  = time.Second
	metricsShutdown     = 5 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger               *logger.Logger
	DB                   pinger
	Redis                pinger
	PubSub               pinger
	NotificationConsumer runner
	// ReadyTimeout bounds how long Run waits for dependencies to answer.
	ReadyTimeout time.Duration
	// MetricsAddr, when set, serves Gatherer on /metrics next to the consumer.
	MetricsAddr string
	Gatherer    prometheus.Gatherer
}

type dependency struct {
	name string
	ping func(context.Context) error
}

// Service waits for its dependencies and then runs the order notification consumer.
type Service struct {
	logg         *logger.Logger
	deps         []dependency
	consumer     runner
	readyTimeout time.Duration
	retryEvery   time.Duration
	metrics      *http.Server
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("worker: logger required")
	}
	if params.NotificationConsumer == nil {
		return nil, errors.New("worker: notification consumer required")
	}
	named := []struct {
		name string
		p    pinger
	}{{"database", params.DB}, {"redis", params.Redis}, {"pubsub", params.PubSub}}

	svc := &Service{
		logg:         params.Logger,
		consumer:     params.NotificationConsumer,
		readyTimeout: params.ReadyTimeout,
		retryEvery:   readyRetryInterval,
	}
	if svc.readyTimeout <= 0 {
		svc.readyTimeout = defaultReadyTimeout
	}
	for _, dep := range named {
		if dep.p == nil {
			return nil, fmt.Errorf("worker: %s client required", dep.name)
		}
		svc.deps = append(svc.deps, dependency{name: dep.name, ping: dep.p.Ping})
	}
	if params.MetricsAddr != "" {
		gatherer := params.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r := chi.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		svc.metrics = &http.Server{Addr: params.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	}
	return svc, nil
}

// waitReady pings every dependency until all answer or readyTimeout passes.
func (s *Service) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.readyTimeout)
	defer cancel()

	for _, dep := range s.deps {
		for attempt := 1; ; attempt++ {
			err := dep.ping(ctx)
			if err == nil {
				break
			}
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"dependency": dep.name,
				"attempt":    attempt,
				"error":      err.Error(),
			}), "worker dependency not ready")

			select {
			case <-ctx.Done():
				return fmt.Errorf("%s not ready: %w", dep.name, err)
			case <-time.After(s.retryEvery):
			}
		}
	}
	s.logg.Info(ctx, "worker dependencies ready")
	return nil
}

// Run blocks until the consumer returns or ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.waitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	defer stop()
	g.Go(func() error {
		defer stop()
		return s.consumer.Run(gctx)
	})
	if s.metrics != nil {
		g.Go(func() error {
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdown)
			defer cancel()
			return s.metrics.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		s.logg.Info(ctx, "worker stopping")
		return ctx.Err()
	}
	if err != nil {
		s.logg.Error(ctx, "notification consumer stopped unexpectedly", err)
	}
	return err
}

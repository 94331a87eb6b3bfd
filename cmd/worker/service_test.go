package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

type stubPinger struct {
	err   error
	calls int
}

func (s *stubPinger) Ping(context.Context) error {
	s.calls++
	return s.err
}

type stubRunner struct {
	err  error
	runs int
}

func (s *stubRunner) Run(ctx context.Context) error {
	s.runs++
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func newTestService(t *testing.T, redis pinger, consumer *stubRunner) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:               logger.New(logger.Options{ServiceName: "worker-test"}),
		DB:                   &stubPinger{},
		Redis:                redis,
		PubSub:               &stubPinger{},
		NotificationConsumer: consumer,
		ReadyTimeout:         50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.retryEvery = 5 * time.Millisecond
	return svc
}

func TestRunStopsBeforeConsumerWhenDependencyDown(t *testing.T) {
	consumer := &stubRunner{}
	redis := &stubPinger{err: errors.New("connection refused")}
	svc := newTestService(t, redis, consumer)

	err := svc.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "redis not ready") || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected redis readiness error, got %v", err)
	}
	if redis.calls <= 1 {
		t.Fatalf("dependency should be retried, pinged %d times", redis.calls)
	}
	if consumer.runs != 0 {
		t.Fatalf("consumer must not start, ran %d times", consumer.runs)
	}
}

func TestRunWaitsForSlowDependency(t *testing.T) {
	consumer := &stubRunner{err: errors.New("subscription deleted")}
	redis := &flakyPinger{failures: 2}
	svc := newTestService(t, redis, consumer)

	err := svc.Run(context.Background())
	if err == nil || err.Error() != "subscription deleted" {
		t.Fatalf("expected consumer error, got %v", err)
	}
	if redis.calls != 3 || consumer.runs != 1 {
		t.Fatalf("expected 3 pings and 1 run, got %d and %d", redis.calls, consumer.runs)
	}
}

func TestRunReturnsConsumerError(t *testing.T) {
	consumer := &stubRunner{err: errors.New("subscription deleted")}
	svc := newTestService(t, &stubPinger{}, consumer)

	err := svc.Run(context.Background())
	if err == nil || err.Error() != "subscription deleted" {
		t.Fatalf("expected consumer error, got %v", err)
	}
	if consumer.runs != 1 {
		t.Fatalf("expected 1 run, got %d", consumer.runs)
	}
}

func TestRunReturnsCanceledOnShutdown(t *testing.T) {
	consumer := &stubRunner{}
	svc := newTestService(t, &stubPinger{}, consumer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunServesMetricsUntilShutdown(t *testing.T) {
	consumer := &stubRunner{}
	svc, err := NewService(ServiceParams{
		Logger:               logger.New(logger.Options{ServiceName: "worker-test"}),
		DB:                   &stubPinger{},
		Redis:                &stubPinger{},
		PubSub:               &stubPinger{},
		NotificationConsumer: consumer,
		MetricsAddr:          "127.0.0.1:0",
		Gatherer:             prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.metrics == nil {
		t.Fatal("expected metrics server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := svc.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if consumer.runs != 1 {
		t.Fatalf("expected 1 run, got %d", consumer.runs)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "worker-test"})

	_, err := NewService(ServiceParams{
		Logger: logg,
		DB:     &stubPinger{},
		Redis:  &stubPinger{},
		PubSub: &stubPinger{},
	})
	if err == nil || !strings.Contains(err.Error(), "consumer") {
		t.Fatalf("expected consumer error, got %v", err)
	}

	_, err = NewService(ServiceParams{
		Logger:               logg,
		DB:                   &stubPinger{},
		PubSub:               &stubPinger{},
		NotificationConsumer: &stubRunner{},
	})
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis error, got %v", err)
	}
}

type flakyPinger struct {
	failures int
	calls    int
}

func (f *flakyPinger) Ping(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("loading dataset")
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox/registry"
)

// processBatch publishes one locked batch inside a transaction. It reports whether any rows
// were fetched so Run can decide whether to poll again immediately.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	fetched := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		fetched = len(events)
		for _, event := range events {
			if err := s.processEvent(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return fetched > 0, err
}

// processEvent returns an error only when bookkeeping fails; publish failures are recorded on
// the row or in the dead-letter table.
func (s *Service) processEvent(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonUnroutable, err, s.eventFields(event, nil))
	}
	fields := s.eventFields(event, resolved)

	pubErr := s.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.ObservePublish(string(event.EventType), metrics.OutboxResultPublished)
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if reason, terminal := s.classify(attempt, pubErr); terminal {
		return s.deadLetter(ctx, tx, event, reason, pubErr, fields)
	}

	fields["error"] = pubErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	s.metrics.ObservePublish(string(event.EventType), metrics.OutboxResultRetry)
	return nil
}

// classify decides whether a failed publish on its attempt-th try is final.
func (s *Service) classify(attempt int, pubErr error) (enums.OutboxDLQErrorReason, bool) {
	switch {
	case registry.IsNonRetryable(pubErr):
		return enums.OutboxDLQReasonNonRetryable, true
	case attempt >= s.maxAttempts:
		return enums.OutboxDLQReasonMaxAttempts, true
	}
	return "", false
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event dead-lettered")

	msg := cause.Error()
	if reason == enums.OutboxDLQReasonMaxAttempts {
		msg = fmt.Sprintf("gave up after %d attempts: %s", s.maxAttempts, msg)
	}
	entry := event.DeadLetter(reason, msg, time.Now().UTC())
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.ObservePublish(string(event.EventType), metrics.OutboxResultDeadLettered)
	return nil
}

// publish sends the stored payload verbatim. Messages for one aggregate share an ordering key
// so a subscriber sees an order's events in the order they were written.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publishers.get(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("topic %s: %w", topic, errNilPublishResult))
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) eventFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if resolved != nil {
		fields["event_id"] = resolved.Envelope.EventID
		fields["topic"] = resolved.Descriptor.Topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

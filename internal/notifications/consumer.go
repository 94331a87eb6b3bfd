package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// ConsumerParams wires the order notification consumer.
type ConsumerParams struct {
	Repo         notificationWriter
	Subscription receiver
	Idempotency  processedTracker
	Metrics      *metrics.ConsumerMetrics
	Logger       *logger.Logger
}

// Consumer turns order_placed events into order confirmation notifications.
type Consumer struct {
	repo         notificationWriter
	subscription receiver
	idempotency  processedTracker
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("notifications repository required")
	case params.Subscription == nil:
		return nil, fmt.Errorf("orders subscription required")
	case params.Idempotency == nil:
		return nil, fmt.Errorf("idempotency manager required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         params.Repo,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	outcome string
	nack    bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) (result processResult) {
	eventType := msg.Attributes["event_type"]
	defer func() {
		c.metrics.Observe(orderNotificationConsumer, eventType, result.outcome)
	}()
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
		"consumer":   orderNotificationConsumer,
	})

	if eventType != string(enums.EventOrderPlaced) {
		return processResult{outcome: metrics.ConsumerOutcomeSkipped}
	}

	envelope, eventID, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{outcome: metrics.ConsumerOutcomeDropped}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	var payload payloads.OrderPlacedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse order payload", err)
		return processResult{outcome: metrics.ConsumerOutcomeDropped}
	}
	if err := payload.Validate(); err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "reason", err.Error()), "order payload rejected")
		return processResult{outcome: metrics.ConsumerOutcomeDropped}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{outcome: metrics.ConsumerOutcomeRetry, nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{outcome: metrics.ConsumerOutcomeDuplicate}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_id": payload.OrderID,
		"user_id":  payload.UserID.String(),
	})
	inserted, err := c.repo.Create(ctx, orderConfirmation(eventID, payload))
	if err != nil {
		c.logg.Error(logCtx, "failed to store order notification", err)
		if delErr := c.idempotency.Delete(ctx, orderNotificationConsumer, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to clear idempotency marker", delErr)
		}
		return processResult{outcome: metrics.ConsumerOutcomeRetry, nack: true}
	}
	if !inserted {
		c.logg.Info(logCtx, "order notification already stored")
		return processResult{outcome: metrics.ConsumerOutcomeDuplicate}
	}
	c.logg.Info(logCtx, "order confirmation notification stored")
	return processResult{outcome: metrics.ConsumerOutcomeHandled}
}

func orderConfirmation(eventID uuid.UUID, payload payloads.OrderPlacedEvent) *models.Notification {
	link := "/orders/" + payload.OrderID
	items := "items"
	if payload.ItemCount == 1 {
		items = "item"
	}
	amount := payload.Total.StringFixed(2)
	if currency := strings.TrimSpace(payload.Currency); currency != "" {
		amount = currency + " " + amount
	}
	message := fmt.Sprintf("We received your order %s for %d %s totalling %s. Delivery: %s, payment: %s.",
		payload.OrderID, payload.ItemCount, items, amount,
		payload.DeliveryMethod, payload.PaymentMethod)
	if payload.PromoCode != nil && *payload.PromoCode != "" {
		message += fmt.Sprintf(" Promo %s applied.", *payload.PromoCode)
	}
	return &models.Notification{
		UserID:  payload.UserID,
		EventID: eventID,
		Type:    enums.NotificationTypeOrderConfirmation,
		Title:   "Order placed",
		Message: message,
		Link:    &link,
	}
}

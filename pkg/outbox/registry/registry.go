package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/pawcircle/pawcircle-backend/pkg/config"
	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox"
	"github.com/pawcircle/pawcircle-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type: the aggregate it belongs to, the topic it is
// published on and how its data decodes.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed routing and decoding.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// validator is implemented by payloads that can reject themselves after decoding.
type validator interface {
	Validate() error
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

func route[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		Topic:          topic,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry routes every order and cart event to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	return newEventRegistry(
		route[payloads.OrderPlacedEvent](enums.EventOrderPlaced, enums.AggregateOrder, cfg.OrdersTopic),
		route[payloads.CartClearedEvent](enums.EventCartCleared, enums.AggregateCart, cfg.OrdersTopic),
	)
}

func newEventRegistry(descriptors ...EventDescriptor) (*EventRegistry, error) {
	reg := &EventRegistry{routes: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, desc := range descriptors {
		if !desc.EventType.IsValid() {
			return nil, fmt.Errorf("unknown event type %q", desc.EventType)
		}
		if desc.Topic == "" || desc.PayloadFactory == nil {
			return nil, fmt.Errorf("%s: topic and payload factory are required", desc.EventType)
		}
		if _, dup := reg.routes[desc.EventType]; dup {
			return nil, fmt.Errorf("%s routed twice", desc.EventType)
		}
		reg.routes[desc.EventType] = desc
	}
	return reg, nil
}

// Topics lists the distinct topics events are routed to, sorted.
func (r *EventRegistry) Topics() []string {
	var topics []string
	for _, desc := range r.routes {
		if !slices.Contains(topics, desc.Topic) {
			topics = append(topics, desc.Topic)
		}
	}
	slices.Sort(topics)
	return topics
}

// Resolve checks the row against its route and decodes the payload. Every failure is
// NonRetryable since a malformed row stays malformed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.routeFor(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	envelope, _, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s data: %w", event.EventType, err))
	}
	if v, ok := payload.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, NewNonRetryableError(fmt.Errorf("%s data: %w", event.EventType, err))
		}
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) routeFor(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return desc, fmt.Errorf("no route for event type %q", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return desc, fmt.Errorf("%s belongs to %s aggregates, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return desc, fmt.Errorf("%s row has no aggregate id", event.EventType)
	}
	return desc, nil
}

package enums

// OutboxAggregateType is the aggregate_type column of outbox_events. Events for one
// aggregate share a pub/sub ordering key.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateCart  OutboxAggregateType = "cart"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateCart}

func (a OutboxAggregateType) IsValid() bool { return member(a, aggregateTypes) }

// OutboxEventType is the event_type column of outbox_events and the event_type message
// attribute consumers filter on.
type OutboxEventType string

const (
	EventOrderPlaced OutboxEventType = "order_placed"
	EventCartCleared OutboxEventType = "cart_cleared"
)

var eventTypes = []OutboxEventType{EventOrderPlaced, EventCartCleared}

func (e OutboxEventType) IsValid() bool { return member(e, eventTypes) }

// ParseOutboxEventType matches the raw attribute exactly.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	e := OutboxEventType(value)
	if !e.IsValid() {
		return "", errInvalid("event type", value)
	}
	return e, nil
}

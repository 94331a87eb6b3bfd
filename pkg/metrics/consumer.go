package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ConsumerOutcomeHandled   = "handled"
	ConsumerOutcomeDuplicate = "duplicate"
	ConsumerOutcomeSkipped   = "skipped"
	ConsumerOutcomeDropped   = "dropped"
	ConsumerOutcomeRetry     = "retry"
)

// ConsumerMetrics counts Pub/Sub deliveries per consumer, event type and outcome.
type ConsumerMetrics struct {
	events *prometheus.CounterVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "event_consumer_messages_total",
		Help: "Messages received by event consumers by outcome.",
	}, []string{"consumer", "event_type", "outcome"})
	reg.MustRegister(events)
	return &ConsumerMetrics{events: events}
}

// Observe records one delivery.
func (c *ConsumerMetrics) Observe(consumer, eventType, outcome string) {
	if c == nil || c.events == nil {
		return
	}
	c.events.WithLabelValues(normalizeLabel(consumer), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

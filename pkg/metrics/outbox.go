package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutboxResultPublished    = "published"
	OutboxResultRetry        = "retry"
	OutboxResultDeadLettered = "dead_lettered"
)

// OutboxMetrics counts publish results per event type.
type OutboxMetrics struct {
	results *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_results_total",
		Help: "Outbox publish results by event type.",
	}, []string{"event_type", "result"})
	reg.MustRegister(results)
	return &OutboxMetrics{results: results}
}

func (o *OutboxMetrics) ObservePublish(eventType, result string) {
	if o == nil || o.results == nil {
		return
	}
	o.results.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

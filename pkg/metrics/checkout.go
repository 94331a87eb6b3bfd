package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CheckoutOutcomeSuccess      = "success"
	CheckoutOutcomePrecondition = "precondition_failed"
	CheckoutOutcomeFailed       = "failed"
)

// CheckoutMetrics counts commit attempts by outcome and times the commit transaction.
type CheckoutMetrics struct {
	commits  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	total    prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout collectors. A nil registerer yields a no-op recorder.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_commits_total",
		Help: "Checkout commit attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_commit_duration_seconds",
		Help:    "Duration of checkout commits in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	total := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_order_total_amount",
		Help:    "Grand total of committed orders in currency units.",
		Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000},
	})
	reg.MustRegister(commits, duration, total)
	return &CheckoutMetrics{commits: commits, duration: duration, total: total}
}

// ObserveCommit records one commit attempt.
func (c *CheckoutMetrics) ObserveCommit(outcome string, elapsed time.Duration) {
	if c == nil || c.commits == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	c.commits.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveOrderTotal records the grand total of a committed order.
func (c *CheckoutMetrics) ObserveOrderTotal(amount float64) {
	if c == nil || c.total == nil {
		return
	}
	c.total.Observe(amount)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

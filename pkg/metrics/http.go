package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request counts, latency and in-flight requests keyed by route pattern.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being served.",
	})
	reg.MustRegister(requests, duration, inFlight)
	return &HTTPMetrics{requests: requests, duration: duration, inFlight: inFlight}
}

// Begin marks a request in flight and returns the function that completes it.
func (h *HTTPMetrics) Begin() func(method, route string, status int, elapsed time.Duration) {
	if h == nil || h.requests == nil {
		return func(string, string, int, time.Duration) {}
	}
	h.inFlight.Inc()
	return func(method, route string, status int, elapsed time.Duration) {
		h.inFlight.Dec()
		code := strconv.Itoa(status)
		route = normalizeLabel(route)
		h.requests.WithLabelValues(method, route, code).Inc()
		h.duration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	}
}

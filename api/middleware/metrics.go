package middleware

import (
	"net/http"
	"time"

	"github.com/pawcircle/pawcircle-backend/pkg/metrics"
)

// Metrics records request counts and latency labelled by the matched chi route pattern.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.Begin()
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r)

			done(r.Method, routePattern(r), rec.Status(), time.Since(start))
		})
	}
}

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

// Logging emits one access line per request once the handler returns. Server errors log at
// error level and client errors at warn; health checks drop to debug.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r)

			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       routePattern(r),
				"status":      rec.Status(),
				"bytes":       rec.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			ctx := logg.WithFields(r.Context(), fields)
			logg.Log(ctx, accessLevel(r, rec.Status()), "request.complete")
		})
	}
}

func accessLevel(r *http.Request, status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	case strings.HasPrefix(r.URL.Path, "/health/"):
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

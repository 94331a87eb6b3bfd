package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pawcircle/pawcircle-backend/api/responses"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
)

// RateLimitStore counts attempts in fixed windows.
type RateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitPolicy is a fixed-window budget for one route family. A zero limit disables that counter.
type RateLimitPolicy struct {
	name      string
	window    time.Duration
	ipLimit   int
	userLimit int
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, userLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: ipLimit, userLimit: userLimit}
}

// counter is one budget the request is charged against; an empty subject skips it.
type counter struct {
	scope   string
	limit   int
	subject func(*http.Request) string
}

func (p RateLimitPolicy) counters() []counter {
	var out []counter
	if p.ipLimit > 0 {
		out = append(out, counter{scope: "ip", limit: p.ipLimit, subject: clientIP})
	}
	if p.userLimit > 0 {
		out = append(out, counter{scope: "user", limit: p.userLimit, subject: func(r *http.Request) string {
			if id := UserIDFromContext(r.Context()); id != uuid.Nil {
				return id.String()
			}
			return ""
		}})
	}
	return out
}

func (p RateLimitPolicy) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(p.window.Seconds())))
}

// RateLimit charges every request to its per-IP and per-user counters and answers 429 with
// Retry-After once either is exhausted. Promo apply uses it to slow down code guessing.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	counters := policy.counters()
	return func(next http.Handler) http.Handler {
		if policy.window <= 0 || len(counters) == 0 || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, c := range counters {
				subject := c.subject(r)
				if subject == "" {
					continue
				}
				key := store.RateLimitKey(strings.Join([]string{policy.name, c.scope, subject}, ":"))
				count, err := store.IncrWithTTL(ctx, key, policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(c.limit) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":   policy.name,
							"scope":    c.scope,
							"attempts": count,
							"limit":    c.limit,
						}), "rate_limit.blocked")
					}
					w.Header().Set("Retry-After", policy.retryAfter())
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again shortly"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts the first X-Forwarded-For hop, then X-Real-IP, then the socket peer.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/pawcircle/pawcircle-backend/api/responses"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/logger"
	pkgredis "github.com/pawcircle/pawcircle-backend/pkg/redis"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replayed"
	defaultIdempotencyTTL   = 24 * time.Hour
	criticalIdempotencyTTL  = 7 * 24 * time.Hour
	pendingIdempotencyTTL   = time.Minute
	maxIdempotencyKeyLength = 128
)

type idempotencyState string

const (
	statePending   idempotencyState = "pending"
	stateCompleted idempotencyState = "completed"
)

// IdempotencyStore persists reservations and finished responses keyed by Idempotency-Key.
type IdempotencyStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// idempotentRoutes maps "METHOD pattern" to how long a finished response is replayable.
var idempotentRoutes = map[string]time.Duration{
	http.MethodPost + " /api/v1/cart/items": defaultIdempotencyTTL,
	http.MethodPost + " /api/v1/checkout":   criticalIdempotencyTTL,
}

type idempotencyRecord struct {
	State       idempotencyState `json:"state"`
	RequestHash string           `json:"request_hash"`
	Status      int              `json:"status,omitempty"`
	ContentType string           `json:"content_type,omitempty"`
	Body        string           `json:"body,omitempty"`
}

type idempotencyGuard struct {
	store IdempotencyStore
	logg  *logger.Logger
}

// Idempotency reserves the key before the handler runs so a double submit cannot execute twice.
// Finished 2xx-4xx responses are replayed; 5xx responses release the key for a retry.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	guard := &idempotencyGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, idempotencyRoutePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			guard.serve(w, r, next, ttl)
		})
	}
}

func (g *idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, ttl time.Duration) {
	ctx := r.Context()
	idempotencyKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if idempotencyKey == "" || len(idempotencyKey) > maxIdempotencyKeyLength {
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required").
			WithDetails(map[string]any{"maxLength": maxIdempotencyKeyLength}))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	requestHash := hashBody(body)
	key := g.store.IdempotencyKey(idempotencyScope(r), idempotencyKey)

	reservation, err := json.Marshal(idempotencyRecord{State: statePending, RequestHash: requestHash})
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode reservation"))
		return
	}
	reserved, err := g.store.SetNX(ctx, key, string(reservation), pendingIdempotencyTTL)
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
		return
	}
	if !reserved {
		g.replay(w, r, key, requestHash)
		return
	}

	rec := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(rec, r)

	if rec.status >= http.StatusInternalServerError {
		if delErr := g.store.Del(ctx, key); delErr != nil {
			g.logError(ctx, "release idempotency key", delErr)
		}
		return
	}

	record := idempotencyRecord{
		State:       stateCompleted,
		RequestHash: requestHash,
		Status:      defaultStatus(rec.status),
		ContentType: rec.Header().Get("Content-Type"),
		Body:        base64.StdEncoding.EncodeToString(rec.body.Bytes()),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		g.logError(ctx, "marshal idempotency record", err)
		return
	}
	if err := g.store.Set(ctx, key, string(payload), ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g *idempotencyGuard) replay(w http.ResponseWriter, r *http.Request, key, requestHash string) {
	ctx := r.Context()
	stored, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// reservation expired between SETNX and GET
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, g.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != requestHash:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.State != stateCompleted:
		responses.WriteError(ctx, g.logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		writeStoredResponse(w, record)
	}
}

func (g *idempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg == nil || err == nil {
		return
	}
	g.logg.Error(ctx, msg, err)
}

// idempotencyScope keeps keys private to one user and one endpoint.
func idempotencyScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()).String(), r.Method, r.URL.Path}, "|")
}

func writeStoredResponse(w http.ResponseWriter, record idempotencyRecord) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(IdempotentReplayHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

// idempotencyRoutePattern prefers the matched chi pattern so path params share one rule.
func idempotencyRoutePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	ttl, ok := idempotentRoutes[method+" "+pattern]
	return ttl, ok
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

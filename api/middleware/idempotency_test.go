package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
)

const checkoutPath = "/api/v1/checkout"

// memIdempotencyStore mimics the redis string commands the guard relies on.
type memIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	_, taken := m.data[key]
	m.mu.Unlock()
	if taken {
		return false, nil
	}
	return true, m.Set(ctx, key, value, ttl)
}

func (m *memIdempotencyStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return nil
}

func (m *memIdempotencyStore) IdempotencyKey(scope, id string) string { return scope + "#" + id }

func (m *memIdempotencyStore) records() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// routed fakes the chi match so the guard sees the route pattern rather than the raw path.
func routed(method, path, pattern, body, key string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func checkoutRequest(body, key string) *http.Request {
	return routed(http.MethodPost, checkoutPath, checkoutPath, body, key)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return payload.Error.Code
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want pkgerrors.Code) {
	t.Helper()
	if got := errorCode(t, rec); got != string(want) {
		t.Fatalf("expected error code %s, got %s", want, got)
	}
}

func TestRouteTTL(t *testing.T) {
	tests := []struct {
		method, pattern string
		want            time.Duration
		ok              bool
	}{
		{http.MethodPost, checkoutPath, criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/v1/cart/items", defaultIdempotencyTTL, true},
		{http.MethodPatch, "/api/v1/cart/items/{lineId}", 0, false},
		{http.MethodPost, "/api/v1/cart/promo", 0, false},
		{http.MethodPost, "", 0, false},
	}
	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok || ttl != tt.want {
			t.Fatalf("%s %s: expected (%s, %t), got (%s, %t)", tt.method, tt.pattern, tt.want, tt.ok, ttl, ok)
		}
	}
}

func TestIdempotencyRejectsMissingOrOversizedKey(t *testing.T) {
	guarded := Idempotency(newMemIdempotencyStore(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a usable key")
	}))

	for _, key := range []string{"", "   ", strings.Repeat("k", maxIdempotencyKeyLength+1)} {
		rec := serve(guarded, checkoutRequest(`{}`, key))
		expectStatus(t, rec, http.StatusBadRequest)
		expectErrorCode(t, rec, pkgerrors.CodeValidation)
	}
}

func TestIdempotencyReplaysFinishedResponse(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	guarded := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"o-1"}`))
	}))

	first := serve(guarded, checkoutRequest(`{"delivery":"standard"}`, "k-1"))
	expectStatus(t, first, http.StatusCreated)
	if first.Header().Get(IdempotentReplayHeader) != "" {
		t.Fatal("first response must not be marked as a replay")
	}

	again := serve(guarded, checkoutRequest(`{"delivery":"standard"}`, "k-1"))
	expectStatus(t, again, http.StatusCreated)
	if got := again.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected replayed content type, got %q", got)
	}
	if again.Header().Get(IdempotentReplayHeader) != "true" {
		t.Fatal("expected replay header on second response")
	}
	if got := again.Body.String(); got != `{"orderId":"o-1"}` {
		t.Fatalf("expected replayed body, got %s", got)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}

	for key, ttl := range store.ttls {
		if ttl != criticalIdempotencyTTL {
			t.Fatalf("%s: expected ttl %s, got %s", key, criticalIdempotencyTTL, ttl)
		}
	}
}

func TestIdempotencyRejectsKeyReuseWithOtherBody(t *testing.T) {
	guarded := Idempotency(newMemIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve(guarded, checkoutRequest(`{"delivery":"standard"}`, "k-2"))
	rec := serve(guarded, checkoutRequest(`{"delivery":"express"}`, "k-2"))

	expectStatus(t, rec, http.StatusConflict)
	expectErrorCode(t, rec, pkgerrors.CodeIdempotency)
}

func TestIdempotencyReleasesKeyAfterServerError(t *testing.T) {
	store := newMemIdempotencyStore()
	statuses := []int{http.StatusServiceUnavailable, http.StatusCreated}
	calls := 0
	guarded := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(statuses[calls])
		calls++
	}))

	expectStatus(t, serve(guarded, checkoutRequest(`{}`, "retry")), http.StatusServiceUnavailable)
	if n := store.records(); n != 0 {
		t.Fatalf("expected key to be released, found %d records", n)
	}
	expectStatus(t, serve(guarded, checkoutRequest(`{}`, "retry")), http.StatusCreated)
	if calls != 2 || store.records() != 1 {
		t.Fatalf("expected 2 calls and 1 record, got %d and %d", calls, store.records())
	}
}

func TestIdempotencyKeysArePerUser(t *testing.T) {
	calls := 0
	guarded := Idempotency(newMemIdempotencyStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		req := checkoutRequest(`{}`, "shared")
		serve(guarded, req.WithContext(WithUserID(req.Context(), uuid.New())))
	}
	if calls != 2 {
		t.Fatalf("expected each user to reach the handler, got %d calls", calls)
	}
}

func TestIdempotencyBlocksInFlightDuplicate(t *testing.T) {
	store := newMemIdempotencyStore()
	mw := Idempotency(store, nil)
	duplicate := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("duplicate must not reach the handler")
	}))

	var dupStatus int
	var dupCode string
	original := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		rec := serve(duplicate, checkoutRequest(`{}`, "double"))
		dupStatus, dupCode = rec.Code, errorCode(t, rec)
		w.WriteHeader(http.StatusCreated)
	}))

	expectStatus(t, serve(original, checkoutRequest(`{}`, "double")), http.StatusCreated)
	if dupStatus != http.StatusConflict || dupCode != string(pkgerrors.CodeConflict) {
		t.Fatalf("expected in-flight duplicate to conflict, got %d %s", dupStatus, dupCode)
	}
}

func TestIdempotencyPassesThroughUnlistedRoutes(t *testing.T) {
	store := newMemIdempotencyStore()
	guarded := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := routed(http.MethodPatch, "/api/v1/cart/items/1", "/api/v1/cart/items/{lineId}", `{}`, "")
	expectStatus(t, serve(guarded, req), http.StatusOK)
	if n := store.records(); n != 0 {
		t.Fatalf("unlisted route must not store records, found %d", n)
	}
}

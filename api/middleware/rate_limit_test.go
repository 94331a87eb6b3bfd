package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
)

type countingStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCountingStore() *countingStore { return &countingStore{counts: map[string]int64{}} }

func (s *countingStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *countingStore) RateLimitKey(scope string) string { return "rl:" + scope }

func promoAttempt(user uuid.UUID, forwardedFor string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/promo", nil)
	req.RemoteAddr = "10.0.0.9:5100"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	if user != uuid.Nil {
		req = req.WithContext(WithUserID(req.Context(), user))
	}
	return req
}

func limited(policy RateLimitPolicy, store RateLimitStore) http.Handler {
	return RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRateLimitBlocksUserPastBudget(t *testing.T) {
	store := newCountingStore()
	h := limited(NewRateLimitPolicy("Promo", 90*time.Second, 0, 2), store)
	user := uuid.New()

	expectStatus(t, serve(h, promoAttempt(user, "")), http.StatusNoContent)
	expectStatus(t, serve(h, promoAttempt(user, "")), http.StatusNoContent)

	blocked := serve(h, promoAttempt(user, ""))
	expectStatus(t, blocked, http.StatusTooManyRequests)
	if got := blocked.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("expected Retry-After 90, got %q", got)
	}
	expectErrorCode(t, blocked, pkgerrors.CodeRateLimit)
	if got := store.counts["rl:promo:user:"+user.String()]; got != 3 {
		t.Fatalf("expected 3 counted attempts, got %d", got)
	}

	// other users keep their own budget
	expectStatus(t, serve(h, promoAttempt(uuid.New(), "")), http.StatusNoContent)
}

func TestRateLimitCountsFirstForwardedHop(t *testing.T) {
	store := newCountingStore()
	h := limited(NewRateLimitPolicy("promo", time.Minute, 1, 0), store)

	expectStatus(t, serve(h, promoAttempt(uuid.Nil, "5.6.7.8, 10.0.0.1")), http.StatusNoContent)
	expectStatus(t, serve(h, promoAttempt(uuid.Nil, "5.6.7.8")), http.StatusTooManyRequests)
	// socket peer is a separate client
	expectStatus(t, serve(h, promoAttempt(uuid.Nil, "")), http.StatusNoContent)
	if _, ok := store.counts["rl:promo:ip:10.0.0.9"]; !ok {
		t.Fatalf("expected socket peer counter, got %v", store.counts)
	}
}

func TestRateLimitSkipsUserCounterForAnonymousRequests(t *testing.T) {
	store := newCountingStore()
	h := limited(NewRateLimitPolicy("promo", time.Minute, 0, 1), store)

	for range 3 {
		expectStatus(t, serve(h, promoAttempt(uuid.Nil, "")), http.StatusNoContent)
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected no counters, got %v", store.counts)
	}
}

func TestRateLimitStoreFailure(t *testing.T) {
	store := newCountingStore()
	store.err = errors.New("redis down")

	rec := serve(limited(NewRateLimitPolicy("promo", time.Minute, 5, 5), store), promoAttempt(uuid.New(), ""))
	expectStatus(t, rec, http.StatusServiceUnavailable)
	expectErrorCode(t, rec, pkgerrors.CodeDependency)
}

func TestRateLimitDisabledPolicies(t *testing.T) {
	for _, policy := range []RateLimitPolicy{
		NewRateLimitPolicy("promo", 0, 1, 1),
		NewRateLimitPolicy("promo", time.Minute, 0, 0),
	} {
		store := newCountingStore()
		h := limited(policy, store)
		for range 3 {
			expectStatus(t, serve(h, promoAttempt(uuid.New(), "1.1.1.1")), http.StatusNoContent)
		}
		if len(store.counts) != 0 {
			t.Fatalf("disabled policy must not count, got %v", store.counts)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:443"
	if got := clientIP(req); got != "192.0.2.1" {
		t.Fatalf("expected remote addr host, got %q", got)
	}

	req.Header.Set("X-Real-IP", " 198.51.100.7 ")
	if got := clientIP(req); got != "198.51.100.7" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.7")
	if got := clientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

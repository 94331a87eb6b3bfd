package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pawcircle/pawcircle-backend/pkg/config"
)

func TestIncrWithTTLAttachesExpiryOnlyOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("promo:user:u1")

	for want := int64(1); want <= 3; want++ {
		count, err := client.IncrWithTTL(ctx, key, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != want {
			t.Fatalf("expected counter %d got %d", want, count)
		}
	}
	if len(mock.expiries) != 1 || mock.expiries[key] != time.Minute {
		t.Fatalf("expected a single one minute expiry, got %v", mock.expiries)
	}
}

func TestIncrWithTTLWithoutWindowSkipsExpiry(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	if _, err := client.IncrWithTTL(context.Background(), "counter", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.expiries) != 0 {
		t.Fatalf("expected no expiry, got %v", mock.expiries)
	}
}

func TestSessionValueLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.SessionKey("user-1", "applied_promo_code")
	if err := client.Set(ctx, key, "WELCOME10", 10*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "WELCOME10" {
		t.Fatalf("expected stored code, got %q", value)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "pc:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "pc:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.SessionKey("user", "last_order"); got != "pc:session:user:last_order" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.LockKey("cart", "user"); got != "pc:lock:cart:user" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.SessionKey("user", ""); got != "pc:session:user" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestBuildOptions(t *testing.T) {
	cfg := config.RedisConfig{
		URL:         "redis://:secret@cache.internal:6380/2",
		DB:          5,
		PoolSize:    25,
		DialTimeout: 3 * time.Second,
	}
	opts, err := buildOptions(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.Password != "secret" {
		t.Fatalf("url not applied: %+v", opts)
	}
	if opts.DB != 2 {
		t.Fatalf("db from url should win, got %d", opts.DB)
	}
	if opts.PoolSize != 25 || opts.DialTimeout != 3*time.Second {
		t.Fatalf("explicit settings should fill unset fields, got pool=%d dial=%v", opts.PoolSize, opts.DialTimeout)
	}

	opts, err = buildOptions(config.RedisConfig{Address: "localhost:6379", DB: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 3 {
		t.Fatalf("address options not applied: %+v", opts)
	}

	if _, err := buildOptions(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	if _, err := buildOptions(config.RedisConfig{URL: "http://nope"}); err == nil {
		t.Fatal("expected error for non-redis url")
	}
}

func TestNilStoreReturnsError(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
	if _, err := client.DeleteIfEquals(context.Background(), "k", "v"); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close without raw client should be a no-op: %v", err)
	}
}

type mockCmdable struct {
	data     map[string]string
	incr     map[string]int64
	expiries map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     make(map[string]string),
		incr:     make(map[string]int64),
		expiries: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) ExpireNX(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if _, ok := m.expiries[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	m.expiries[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	if script != compareAndDelete {
		return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
	}
	if v, ok := m.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(m.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

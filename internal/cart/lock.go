package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	pkgredis "github.com/pawcircle/pawcircle-backend/pkg/redis"
)

var errCartBusy = pkgerrors.New(pkgerrors.CodeConflict, "cart busy")

// Locker serializes mutations of one user's cart. A held lock yields a CONFLICT error.
type Locker interface {
	Lock(ctx context.Context, userID uuid.UUID) (func(context.Context), error)
}

// RedisLocker guards carts across API instances.
type RedisLocker struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *pkgredis.Client, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisLocker{client: client, ttl: ttl}, nil
}

func (l *RedisLocker) Lock(ctx context.Context, userID uuid.UUID) (func(context.Context), error) {
	lock, err := pkgredis.NewRedisLock(l.client, l.client.LockKey("cart", userID.String()), l.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart lock")
	}
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
	}
	if !ok {
		return nil, errCartBusy
	}
	return func(ctx context.Context) { _ = lock.Release(ctx) }, nil
}

// LocalLocker guards carts inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[uuid.UUID]struct{}{}}
}

func (l *LocalLocker) Lock(_ context.Context, userID uuid.UUID) (func(context.Context), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[userID]; busy {
		return nil, errCartBusy
	}
	l.held[userID] = struct{}{}
	return func(context.Context) {
		l.mu.Lock()
		delete(l.held, userID)
		l.mu.Unlock()
	}, nil
}

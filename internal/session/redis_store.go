package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionKey(userID, key string) string
}

// RedisStore persists session values in redis under pc:session:<user>:<key>.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisStore(client redisClient, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.client.SessionKey(userID.String(), key))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read session %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	if err := s.client.Set(ctx, s.client.SessionKey(userID.String(), key), value, s.ttl); err != nil {
		return fmt.Errorf("write session %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, s.client.SessionKey(userID.String(), key))
	}
	if err := s.client.Del(ctx, full...); err != nil {
		return fmt.Errorf("delete session keys: %w", err)
	}
	return nil
}

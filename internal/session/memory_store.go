package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and single-instance dev runs. Values never expire.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[uuid.UUID]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[uuid.UUID]map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, userID uuid.UUID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[userID][key]
	return value, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, userID uuid.UUID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.values[userID]
	if !ok {
		bucket = map[string]string{}
		s.values[userID] = bucket
	}
	bucket[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID uuid.UUID, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.values[userID]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(bucket, key)
	}
	if len(bucket) == 0 {
		delete(s.values, userID)
	}
	return nil
}

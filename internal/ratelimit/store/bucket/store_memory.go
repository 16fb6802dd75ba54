package bucket

import (
	"context"
	"sync"

	"veritrail/internal/ratelimit/models"
)

// InMemoryStore implements Store with a mutex-guarded map. Used in tests and
// when no Redis is configured (persistence then lasts for the process only).
type InMemoryStore struct {
	mu    sync.RWMutex
	snaps map[string]models.BucketSnapshot
}

// NewInMemoryStore creates a new in-memory bucket store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snaps: make(map[string]models.BucketSnapshot)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*models.BucketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if snap, ok := s.snaps[key]; ok {
		return &snap, nil
	}
	return nil, nil
}

func (s *InMemoryStore) Put(_ context.Context, key string, snap models.BucketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[key] = snap
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, key)
	return nil
}

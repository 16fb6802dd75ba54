package fallback

import (
	"context"
	"sync"
)

// InMemoryKV implements KV with a mutex-guarded map. Used in tests and when
// no Redis is configured.
type InMemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryKV creates an empty in-memory KV store.
func NewInMemoryKV() *InMemoryKV {
	return &InMemoryKV{values: make(map[string]string)}
}

func (s *InMemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *InMemoryKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

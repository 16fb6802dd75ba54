// Package fallback implements the local fallback audit sink: a capped ring of
// entries stored in a key-value backend. The ring trim lives here, not in the
// backend, so any get/set store can serve.
package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"veritrail/internal/audit"
)

// DefaultCap bounds the ring so the fallback never grows without limit.
const DefaultCap = 500

const defaultKey = "veritrail:audit:fallback"

// KV is the minimal durable key-value contract the ring needs.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value, overwriting any previous one.
	Set(ctx context.Context, key, value string) error
}

// Store implements audit.Sink as an append-and-trim ring over a KV backend.
// Entries are kept in creation order; beyond the cap the oldest are evicted.
type Store struct {
	mu  sync.Mutex
	kv  KV
	key string
	cap int
}

type Option func(*Store)

// WithCap overrides the ring capacity.
func WithCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithKey overrides the storage key (used by tests to isolate rings).
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// New creates a fallback sink over the given KV backend.
func New(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, key: defaultKey, cap: DefaultCap}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert appends the batch and trims the ring to its cap, oldest first.
// Inserts are idempotent on entry ID, mirroring the remote sink: a requeued
// batch re-landing here during an extended outage replaces its earlier copy
// instead of duplicating it and evicting distinct older entries.
func (s *Store) Insert(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ring, err := s.load(ctx)
	if err != nil {
		return err
	}

	ring = dedupeByID(append(ring, entries...))
	if len(ring) > s.cap {
		ring = ring[len(ring)-s.cap:]
	}

	return s.save(ctx, ring)
}

// dedupeByID keeps the newest occurrence of each entry ID, preserving order.
func dedupeByID(ring []audit.Entry) []audit.Entry {
	seen := make(map[string]struct{}, len(ring))
	out := make([]audit.Entry, 0, len(ring))
	for i := len(ring) - 1; i >= 0; i-- {
		if _, ok := seen[ring[i].ID]; ok {
			continue
		}
		seen[ring[i].ID] = struct{}{}
		out = append(out, ring[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Select applies the filter in-process with the same semantics as the remote
// sink: timestamp descending, limit/offset paging.
func (s *Store) Select(ctx context.Context, f audit.Filter, limit, offset int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	var matched []audit.Entry
	for _, e := range ring {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}

	// Stable sort keeps creation order for equal timestamps.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Len reports the current ring size.
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ring, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(ring), nil
}

func (s *Store) load(ctx context.Context) ([]audit.Entry, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load fallback ring: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var ring []audit.Entry
	if err := json.Unmarshal([]byte(raw), &ring); err != nil {
		return nil, fmt.Errorf("decode fallback ring: %w", err)
	}
	return ring, nil
}

func (s *Store) save(ctx context.Context, ring []audit.Entry) error {
	raw, err := json.Marshal(ring)
	if err != nil {
		return fmt.Errorf("encode fallback ring: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(raw)); err != nil {
		return fmt.Errorf("save fallback ring: %w", err)
	}
	return nil
}

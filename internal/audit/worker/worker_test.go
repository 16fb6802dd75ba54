package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritrail/internal/audit"
)

type countingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *countingSink) Insert(_ context.Context, entries []audit.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entries...)
	return nil
}

func (c *countingSink) Select(_ context.Context, _ audit.Filter, _, _ int) ([]audit.Entry, error) {
	return nil, nil
}

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func newTestService(t *testing.T, sink audit.Sink, opts ...audit.Option) *audit.Service {
	t.Helper()
	svc, err := audit.NewService([]audit.Sink{sink}, opts...)
	require.NoError(t, err)
	return svc
}

func TestRunFlushesOnInterval(t *testing.T) {
	sink := &countingSink{}
	svc := newTestService(t, sink)
	svc.Log(context.Background(), audit.ActionAuthLogin, "User signed in")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(svc, WithInterval(10*time.Millisecond)).Run(ctx)
	}()

	require.Eventually(t, func() bool { return sink.count() == 1 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunFlushesOnKick(t *testing.T) {
	sink := &countingSink{}
	// Threshold of 1 kicks on the first entry, well before the long ticker.
	svc := newTestService(t, sink, audit.WithFlushThreshold(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- New(svc, WithInterval(time.Hour)).Run(ctx)
	}()

	svc.Log(context.Background(), audit.ActionAuthLogin, "User signed in")

	require.Eventually(t, func() bool { return sink.count() == 1 },
		2*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunDrainsOnShutdown(t *testing.T) {
	sink := &countingSink{}
	svc := newTestService(t, sink)
	svc.Log(context.Background(), audit.ActionAuthLogout, "User signed out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(svc, WithInterval(time.Hour)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// The teardown flush ran before Run returned.
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 0, svc.BufferLen())
}

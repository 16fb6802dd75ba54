// Package worker drives the periodic audit flush cycle.
package worker

import (
	"context"
	"log/slog"
	"time"

	"veritrail/internal/audit"
)

// DefaultInterval is the periodic flush cadence.
const DefaultInterval = 30 * time.Second

// Worker flushes the audit service on a fixed interval and whenever the
// buffer-threshold kick fires. It stops on context cancellation after one
// final drain flush, so short-lived processes and tests leave no dangling
// timers and no buffered entries behind.
type Worker struct {
	service  *audit.Service
	interval time.Duration
	logger   *slog.Logger
}

type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func New(service *audit.Service, opts ...Option) *Worker {
	w := &Worker{service: service, interval: DefaultInterval}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is cancelled. Flush failures are logged, never
// propagated: failed batches are requeued by the service and retried on the
// next cycle.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.finalFlush()
			return ctx.Err()
		case <-ticker.C:
			w.flush(ctx)
		case <-w.service.Kick():
			w.flush(ctx)
		}
	}
}

func (w *Worker) flush(ctx context.Context) {
	if err := w.service.Flush(ctx); err != nil && w.logger != nil {
		w.logger.WarnContext(ctx, "audit flush failed, batch requeued", "error", err)
	}
}

// finalFlush is the best-effort teardown flush. The run context is already
// cancelled, so it gets its own short deadline.
func (w *Worker) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.service.Flush(ctx); err != nil && w.logger != nil {
		w.logger.Warn("final audit flush failed", "error", err)
	}
}

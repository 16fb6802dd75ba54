package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"veritrail/internal/audit/metrics"
	"veritrail/pkg/domerrors"
	"veritrail/pkg/requestcontext"
)

const (
	defaultFlushThreshold = 50
	defaultExportCap      = 10000
	defaultQueryLimit     = 100
)

type actorContext struct {
	id    string
	label string
	orgID string
}

// Service owns the in-memory entry buffer, the flush cycle against the ranked
// sinks, and the read side. Construct one per process; the actor context is
// instance state, not a package global.
type Service struct {
	mu     sync.Mutex
	buffer []Entry
	actor  actorContext

	sinks         []Sink
	flushAt       int
	exportCap     int
	remoteTimeout time.Duration
	kick          chan struct{}
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFlushThreshold sets the buffer length that triggers an immediate flush.
func WithFlushThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.flushAt = n
		}
	}
}

// WithExportCap bounds how many entries a single export may fetch.
func WithExportCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.exportCap = n
		}
	}
}

// WithRemoteTimeout bounds each sink write during flush. Expiry is treated
// identically to a write error: fallback plus requeue.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.remoteTimeout = d
	}
}

// NewService creates the audit service over a ranked sink list: the primary
// (remote) sink first, fallbacks after it.
func NewService(sinks []Sink, opts ...Option) (*Service, error) {
	if len(sinks) == 0 {
		return nil, fmt.Errorf("at least one audit sink is required")
	}

	s := &Service{
		sinks:     sinks,
		flushAt:   defaultFlushThreshold,
		exportCap: defaultExportCap,
		kick:      make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// SetActor records the current actor, consulted by Log when the caller does
// not supply one. Call after successful authentication.
func (s *Service) SetActor(actorID, actorLabel, organizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actor = actorContext{id: actorID, label: actorLabel, orgID: organizationID}
}

// ClearActor clears the actor context. Call on sign-out. Entries logged with
// no actor context carry an empty actor and are still valid (pre-login
// failures, system events).
func (s *Service) ClearActor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actor = actorContext{}
}

// EntryOption overrides entry fields at log time.
type EntryOption func(*Entry)

func WithActor(actorID, actorLabel string) EntryOption {
	return func(e *Entry) {
		e.ActorID = actorID
		e.ActorLabel = actorLabel
	}
}

func WithOrganization(organizationID string) EntryOption {
	return func(e *Entry) {
		e.OrganizationID = organizationID
	}
}

func WithResource(resourceType, resourceID string) EntryOption {
	return func(e *Entry) {
		e.ResourceType = resourceType
		e.ResourceID = resourceID
	}
}

func WithMetadata(metadata map[string]any) EntryOption {
	return func(e *Entry) {
		e.Metadata = metadata
	}
}

func WithSuccess(success bool) EntryOption {
	return func(e *Entry) {
		e.Success = success
	}
}

// Log builds an entry and appends it to the buffer, returning it synchronously.
// It performs no I/O and never fails from the caller's perspective; persistence
// happens on the next flush cycle. Reaching the flush threshold kicks the
// worker instead of flushing inline so callers never wait on a sink.
func (s *Service) Log(ctx context.Context, action Action, description string, opts ...EntryOption) Entry {
	entry := Entry{
		ID:          uuid.NewString(),
		Timestamp:   requestcontext.Now(ctx),
		Action:      action,
		Description: description,
		Success:     true,
	}

	for _, opt := range opts {
		opt(&entry)
	}

	entry.Category = CategoryOf(action)
	entry.Severity = SeverityOf(action, entry.Success)

	s.mu.Lock()
	if entry.ActorID == "" {
		entry.ActorID = s.actor.id
		entry.ActorLabel = s.actor.label
	}
	if entry.OrganizationID == "" {
		entry.OrganizationID = s.actor.orgID
	}
	s.buffer = append(s.buffer, entry)
	full := len(s.buffer) >= s.flushAt
	size := len(s.buffer)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveLogged(string(entry.Severity))
		s.metrics.SetBufferSize(size)
	}

	if full {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}

	return entry
}

// Success logs an entry with success fixed to true.
func (s *Service) Success(ctx context.Context, action Action, description string, opts ...EntryOption) Entry {
	return s.Log(ctx, action, description, append(opts, WithSuccess(true))...)
}

// Failure logs an entry with success fixed to false (severity becomes error).
func (s *Service) Failure(ctx context.Context, action Action, description string, opts ...EntryOption) Entry {
	return s.Log(ctx, action, description, append(opts, WithSuccess(false))...)
}

// Kick signals that the buffer reached the flush threshold. The worker selects
// on it alongside its ticker.
func (s *Service) Kick() <-chan struct{} {
	return s.kick
}

// BufferLen reports the current number of buffered entries.
func (s *Service) BufferLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Flush drains the buffer to the first sink that accepts the batch.
//
// The buffer is swapped for an empty one first, so entries logged during an
// in-flight flush land in the new buffer and are never mixed into the batch
// being sent. Any non-success outcome of the primary write, whether an error
// return or a timeout, routes the batch to the next ranked sink AND requeues
// it at the front of the live buffer so the next cycle retries the primary.
// There is no terminal "lost" state: the cost is possible duplication in the
// remote sink, which its idempotent insert absorbs.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var firstErr error
	for i, sink := range s.sinks {
		err := s.insert(ctx, sink, batch)
		if err == nil {
			if i == 0 {
				if s.metrics != nil {
					s.metrics.ObserveFlush(len(batch))
					s.metrics.SetBufferSize(s.BufferLen())
				}
				return nil
			}
			// Persisted to a fallback; keep retrying toward the primary.
			s.requeue(batch)
			if s.metrics != nil {
				s.metrics.ObserveFallback(len(batch))
			}
			return nil
		}

		if firstErr == nil {
			firstErr = err
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "audit sink write failed",
				"sink_rank", i, "batch_size", len(batch), "error", err)
		}
	}

	s.requeue(batch)
	if s.metrics != nil {
		s.metrics.ObserveFlushFailure()
	}
	return domerrors.Wrap(firstErr, domerrors.CodeSinkUnavailable, "audit flush failed on all sinks")
}

func (s *Service) insert(ctx context.Context, sink Sink, batch []Entry) error {
	if s.remoteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.remoteTimeout)
		defer cancel()
	}
	return sink.Insert(ctx, batch)
}

// requeue re-prepends a batch to the live buffer, preserving original temporal
// ordering relative to entries logged since the snapshot swap.
func (s *Service) requeue(batch []Entry) {
	s.mu.Lock()
	s.buffer = append(append(make([]Entry, 0, len(batch)+len(s.buffer)), batch...), s.buffer...)
	size := len(s.buffer)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveRequeue(len(batch))
		s.metrics.SetBufferSize(size)
	}
}

// Query reads from the first sink that answers, walking the ranked list.
// Filter semantics and ordering are identical across sinks.
func (s *Service) Query(ctx context.Context, f Filter, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if offset < 0 {
		offset = 0
	}

	var firstErr error
	for i, sink := range s.sinks {
		entries, err := sink.Select(ctx, f, limit, offset)
		if err == nil {
			return entries, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "audit sink read failed", "sink_rank", i, "error", err)
		}
	}
	return nil, domerrors.Wrap(firstErr, domerrors.CodeSinkUnavailable, "audit query failed on all sinks")
}

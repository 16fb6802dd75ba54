// Package service implements the keyed token-bucket rate limiter.
//
// Refill arithmetic is quantized and phase-locked: lastRefill advances by whole
// refill intervals only, never snapping to "now", so the sub-interval remainder
// is preserved and refill timing does not drift forward on every check.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"veritrail/internal/ratelimit/metrics"
	"veritrail/internal/ratelimit/models"
	"veritrail/internal/ratelimit/store/bucket"
	"veritrail/pkg/requestcontext"
)

type bucketState struct {
	tokens     int
	lastRefill time.Time
}

// Limiter decides, per (profile, identity) key, whether an action may proceed.
// Buckets are created lazily, seeded full; persistent profiles write snapshots
// through to the bucket store and rehydrate from it on first use.
type Limiter struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	buckets  map[string]*bucketState

	store   bucket.Store // optional; nil disables persistence
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithStore(store bucket.Store) Option {
	return func(l *Limiter) {
		l.store = store
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New creates a Limiter seeded with the given profile table.
func New(profiles map[string]models.Profile, opts ...Option) (*Limiter, error) {
	for name, p := range profiles {
		if !p.Valid() {
			return nil, fmt.Errorf("invalid rate limit profile %q", name)
		}
	}

	l := &Limiter{
		profiles: make(map[string]models.Profile, len(profiles)),
		buckets:  make(map[string]*bucketState),
	}
	for name, p := range profiles {
		l.profiles[name] = p
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// RegisterProfile adds or overwrites a named profile. Existing buckets keep
// their state; the new rule takes effect on their next refill computation,
// which re-reads the current profile.
func (l *Limiter) RegisterProfile(name string, profile models.Profile) error {
	if !profile.Valid() {
		return fmt.Errorf("invalid rate limit profile %q", name)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.profiles[name] = profile
	return nil
}

// Check consumes one token for the key if available. The current time is read
// from requestcontext.Now(ctx) so tests can advance virtual time.
func (l *Limiter) Check(ctx context.Context, profileName, identity string) *models.Result {
	return l.check(ctx, profileName, identity, true)
}

// Peek runs the identical refill computation without consuming a token or
// persisting anything. Peek followed immediately by Check never double-counts
// a refill: neither call snaps lastRefill to now.
func (l *Limiter) Peek(ctx context.Context, profileName, identity string) *models.Result {
	return l.check(ctx, profileName, identity, false)
}

func (l *Limiter) check(ctx context.Context, profileName, identity string, consume bool) *models.Result {
	now := requestcontext.Now(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	profile, ok := l.profiles[profileName]
	if !ok {
		// Missing configuration must never block legitimate traffic.
		return &models.Result{Allowed: true, Unlimited: true, Remaining: -1}
	}

	key := bucketKey(profileName, identity)
	state := l.getOrCreate(ctx, key, profile, now)

	tokens, lastRefill := refill(state.tokens, state.lastRefill, profile, now)

	if tokens < 1 {
		if consume {
			state.tokens = tokens
			state.lastRefill = lastRefill
			l.observe(profileName, false)
		}
		retryAfter := profile.RefillInterval - now.Sub(lastRefill)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &models.Result{
			Allowed:    false,
			Limit:      profile.MaxTokens,
			Remaining:  0,
			RetryAfter: retryAfter,
			Message:    models.DeniedMessage(retryAfter),
		}
	}

	if consume {
		tokens--
		state.tokens = tokens
		state.lastRefill = lastRefill
		if profile.Persistent {
			l.persist(ctx, key, *state)
		}
		l.observe(profileName, true)
	}

	return &models.Result{
		Allowed:   true,
		Limit:     profile.MaxTokens,
		Remaining: tokens,
	}
}

// Reset forces the bucket for the key back to full, re-persisting immediately
// if the profile is persistent.
func (l *Limiter) Reset(ctx context.Context, profileName, identity string) {
	now := requestcontext.Now(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	profile, ok := l.profiles[profileName]
	if !ok {
		return
	}

	key := bucketKey(profileName, identity)
	state := &bucketState{tokens: profile.MaxTokens, lastRefill: now}
	l.buckets[key] = state

	if profile.Persistent {
		l.persist(ctx, key, *state)
	}
}

// getOrCreate returns the bucket for the key, rehydrating persistent profiles
// from the store on first use. Must be called while holding l.mu.
func (l *Limiter) getOrCreate(ctx context.Context, key string, profile models.Profile, now time.Time) *bucketState {
	if state, ok := l.buckets[key]; ok {
		return state
	}

	state := &bucketState{tokens: profile.MaxTokens, lastRefill: now}
	if profile.Persistent && l.store != nil {
		snap, err := l.store.Get(ctx, key)
		switch {
		case err != nil:
			l.warn(ctx, "bucket rehydrate failed", "key", key, "error", err)
		case snap != nil:
			state.tokens = clamp(snap.Tokens, profile.MaxTokens)
			state.lastRefill = snap.LastRefill
		}
	}

	l.buckets[key] = state
	return state
}

// persist writes a snapshot through to the store. Store failures degrade to
// in-memory state and are logged; they never block the check.
func (l *Limiter) persist(ctx context.Context, key string, state bucketState) {
	if l.store == nil {
		return
	}
	snap := models.BucketSnapshot{Tokens: state.tokens, LastRefill: state.lastRefill}
	if err := l.store.Put(ctx, key, snap); err != nil {
		l.warn(ctx, "bucket persist failed", "key", key, "error", err)
	}
}

func (l *Limiter) observe(profile string, allowed bool) {
	if l.metrics == nil {
		return
	}
	if allowed {
		l.metrics.IncrementAllowed(profile)
	} else {
		l.metrics.IncrementDenied(profile)
	}
}

func (l *Limiter) warn(ctx context.Context, msg string, args ...any) {
	if l.logger != nil {
		l.logger.WarnContext(ctx, msg, args...)
	}
}

// refill applies the quantized refill rule and returns the new token count and
// phase-locked lastRefill. Tokens are clamped into [0, MaxTokens] first so a
// profile overwrite with a smaller MaxTokens cannot leave the bucket over cap.
func refill(tokens int, lastRefill time.Time, profile models.Profile, now time.Time) (int, time.Time) {
	tokens = clamp(tokens, profile.MaxTokens)

	elapsed := now.Sub(lastRefill)
	if elapsed < profile.RefillInterval {
		return tokens, lastRefill
	}

	intervals := int(elapsed / profile.RefillInterval)
	tokens = clamp(tokens+intervals*profile.RefillRate, profile.MaxTokens)
	lastRefill = lastRefill.Add(time.Duration(intervals) * profile.RefillInterval)
	return tokens, lastRefill
}

func clamp(tokens, max int) int {
	if tokens < 0 {
		return 0
	}
	if tokens > max {
		return max
	}
	return tokens
}

func bucketKey(profileName, identity string) string {
	if identity == "" {
		return profileName
	}
	return profileName + ":" + identity
}

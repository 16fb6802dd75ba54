package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"veritrail/internal/ratelimit/models"
	"veritrail/pkg/httputil"
	"veritrail/pkg/requestcontext"
)

// Checker is the slice of the limiter the middleware needs.
type Checker interface {
	Check(ctx context.Context, profileName, identity string) *models.Result
}

// SecurityRecorder records a denied action as a security audit event.
// A throttled action logs on rejection; the allow path stays silent.
type SecurityRecorder interface {
	RecordRateLimitDenied(ctx context.Context, profile, identity string, result *models.Result)
}

type Middleware struct {
	limiter  Checker
	logger   *slog.Logger
	recorder SecurityRecorder
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithSecurityRecorder wires the audit adjacency for denials.
func WithSecurityRecorder(recorder SecurityRecorder) Option {
	return func(m *Middleware) {
		m.recorder = recorder
	}
}

func New(limiter Checker, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled && logger != nil {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit gates the wrapped handler with the named profile, keyed by client IP.
func (m *Middleware) Limit(profile string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			identity := requestcontext.ClientIP(ctx)

			result := m.limiter.Check(ctx, profile, identity)
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				if m.recorder != nil {
					m.recorder.RecordRateLimitDenied(ctx, profile, identity, result)
				}
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil || result.Unlimited {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	retryAfter := models.RetryAfterSeconds(result.RetryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limit_exceeded",
		"message":     result.Message,
		"retry_after": retryAfter,
	})
}

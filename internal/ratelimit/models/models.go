package models

import (
	"fmt"
	"math"
	"time"

	"veritrail/pkg/domerrors"
)

// Profile is a named, immutable token-bucket configuration. Profiles are
// registered by name before use; checking an unregistered name is allowed and
// degrades to "unlimited" so missing configuration never blocks traffic.
type Profile struct {
	MaxTokens      int           `json:"max_tokens"`
	RefillRate     int           `json:"refill_rate"` // tokens added per interval
	RefillInterval time.Duration `json:"refill_interval"`

	// Persistent buckets are written through to the bucket store after every
	// consuming check and rehydrated on first use after a restart.
	Persistent bool `json:"persistent"`
}

// Valid reports whether the profile has usable throttling parameters.
func (p Profile) Valid() bool {
	return p.MaxTokens > 0 && p.RefillRate > 0 && p.RefillInterval > 0
}

// BucketSnapshot is the persisted state of a token bucket.
// Invariant: 0 <= Tokens <= Profile.MaxTokens for all observers.
type BucketSnapshot struct {
	Tokens     int       `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

// Result is the outcome of a rate limit check or peek.
type Result struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	Unlimited  bool          `json:"unlimited,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// Err returns a typed LimitExceededError when the result is a denial, nil
// otherwise. Callers that prefer error-value signaling use this; callers that
// inspect the result directly ignore it.
func (r *Result) Err(profile string) error {
	if r.Allowed {
		return nil
	}
	return &LimitExceededError{Profile: profile, RetryAfter: r.RetryAfter}
}

// LimitExceededError signals a denied check to the caller, carrying the wait
// time. It maps to domerrors.CodeRateLimited at the transport layer.
type LimitExceededError struct {
	Profile    string
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s: rate limit exceeded for profile %q, try again in %d seconds",
		domerrors.CodeRateLimited, e.Profile, RetryAfterSeconds(e.RetryAfter))
}

// RetryAfterSeconds converts a retry delay to whole seconds, rounding up so a
// caller that waits the advertised time is guaranteed a token.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// DeniedMessage renders the human-readable denial message for a retry delay.
func DeniedMessage(d time.Duration) string {
	return fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", RetryAfterSeconds(d))
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritrail/internal/ratelimit/models"
	"veritrail/pkg/requestcontext"
)

type fakeChecker struct {
	result   *models.Result
	profile  string
	identity string
}

func (f *fakeChecker) Check(_ context.Context, profileName, identity string) *models.Result {
	f.profile = profileName
	f.identity = identity
	return f.result
}

type fakeRecorder struct {
	calls    int
	profile  string
	identity string
}

func (f *fakeRecorder) RecordRateLimitDenied(_ context.Context, profile, identity string, _ *models.Result) {
	f.calls++
	f.profile = profile
	f.identity = identity
}

func doRequest(t *testing.T, m *Middleware, profile, clientIP string) *httptest.ResponseRecorder {
	t.Helper()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(requestcontext.WithClientIP(req.Context(), clientIP))

	rr := httptest.NewRecorder()
	m.Limit(profile)(next).ServeHTTP(rr, req)
	return rr
}

func TestLimitAllowed(t *testing.T) {
	checker := &fakeChecker{result: &models.Result{Allowed: true, Limit: 10, Remaining: 7}}
	m := New(checker, nil)

	rr := doRequest(t, m, "api", "10.0.0.1")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "10", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "7", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "api", checker.profile)
	assert.Equal(t, "10.0.0.1", checker.identity)
}

func TestLimitDenied(t *testing.T) {
	checker := &fakeChecker{result: &models.Result{
		Allowed:    false,
		Limit:      5,
		Remaining:  0,
		RetryAfter: 11500 * time.Millisecond,
		Message:    models.DeniedMessage(11500 * time.Millisecond),
	}}
	recorder := &fakeRecorder{}
	m := New(checker, nil, WithSecurityRecorder(recorder))

	rr := doRequest(t, m, "auth", "10.0.0.2")

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	// Retry-After rounds up so waiting the advertised time guarantees a token.
	assert.Equal(t, "12", rr.Header().Get("Retry-After"))
	assert.Equal(t, "5", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.Equal(t, "Rate limit exceeded. Try again in 12 seconds.", body["message"])
	assert.Equal(t, float64(12), body["retry_after"])

	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, "auth", recorder.profile)
	assert.Equal(t, "10.0.0.2", recorder.identity)
}

func TestLimitDeniedWithoutRecorder(t *testing.T) {
	checker := &fakeChecker{result: &models.Result{Allowed: false, Limit: 5}}
	m := New(checker, nil)

	rr := doRequest(t, m, "auth", "10.0.0.3")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestLimitUnlimitedSkipsHeaders(t *testing.T) {
	checker := &fakeChecker{result: &models.Result{Allowed: true, Unlimited: true, Remaining: -1}}
	m := New(checker, nil)

	rr := doRequest(t, m, "unknown", "10.0.0.4")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, rr.Header().Get("X-RateLimit-Remaining"))
}

func TestLimitDisabled(t *testing.T) {
	checker := &fakeChecker{result: &models.Result{Allowed: false}}
	m := New(checker, nil, WithDisabled(true))

	rr := doRequest(t, m, "auth", "10.0.0.5")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, checker.profile, "checker must not be consulted when disabled")
}

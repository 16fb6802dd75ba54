package testutil

import (
	"net/http"
	"time"

	"veritrail/pkg/requestcontext"
)

// WithClientIP stamps a client IP onto the request context, simulating what
// the transport middleware does in production.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
}

// WithVirtualTime pins the request clock so rate-limit and audit timestamps
// become deterministic.
func WithVirtualTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

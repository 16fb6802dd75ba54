// Package httptransport is the thin HTTP layer: request parsing, response
// writing and route wiring. Business rules live in the audit and ratelimit
// services.
package httptransport

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veritrail/internal/audit"
	platformmetrics "veritrail/internal/platform/metrics"
	rlmiddleware "veritrail/internal/ratelimit/middleware"
	rlmodels "veritrail/internal/ratelimit/models"
	"veritrail/pkg/requestcontext"
)

// AuditReader is the read side of the audit service the handlers need.
type AuditReader interface {
	Query(ctx context.Context, f audit.Filter, limit, offset int) ([]audit.Entry, error)
	Export(ctx context.Context, f audit.Filter, format audit.Format) (string, error)
}

// LimitController exposes the non-consuming limiter operations.
type LimitController interface {
	Peek(ctx context.Context, profileName, identity string) *rlmodels.Result
	Reset(ctx context.Context, profileName, identity string)
}

// Handler holds the handler dependencies.
type Handler struct {
	auditReader AuditReader
	limiter     LimitController
}

func NewHandler(auditReader AuditReader, limiter LimitController) *Handler {
	return &Handler{auditReader: auditReader, limiter: limiter}
}

// NewRouter wires the public endpoints. The rate-limit middleware gates the
// sensitive routes; denials are audited by the middleware's recorder. A nil
// httpMetrics skips instrumentation.
func NewRouter(h *Handler, limit *rlmiddleware.Middleware, httpMetrics *platformmetrics.HTTP) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(requestContextMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/audit", func(r chi.Router) {
			r.With(limit.Limit("api")).Get("/events", h.handleListEvents)
			r.With(limit.Limit("export")).Get("/export", h.handleExport)
		})

		r.Route("/ratelimit/{profile}", func(r chi.Router) {
			r.Get("/status", h.handleLimitStatus)
			r.With(limit.Limit("api")).Post("/reset", h.handleLimitReset)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealth)

	return r
}

// requestContextMiddleware copies transport-level identity into the request
// context so services and the limiter never touch *http.Request.
func requestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP strips the port from RemoteAddr. RealIP has already rewritten it
// from the forwarding headers when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritrail/internal/ratelimit/models"
	"veritrail/pkg/httputil"
	"veritrail/pkg/requestcontext"
)

type limitStatusResponse struct {
	Profile    string `json:"profile"`
	Allowed    bool   `json:"allowed"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
	Unlimited  bool   `json:"unlimited"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// handleLimitStatus reports the current bucket state without spending a token,
// so dashboards can poll it freely.
func (h *Handler) handleLimitStatus(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")
	identity := limitIdentity(r)

	result := h.limiter.Peek(r.Context(), profile, identity)

	httputil.WriteJSON(w, http.StatusOK, limitStatusResponse{
		Profile:    profile,
		Allowed:    result.Allowed,
		Limit:      result.Limit,
		Remaining:  result.Remaining,
		Unlimited:  result.Unlimited,
		RetryAfter: models.RetryAfterSeconds(result.RetryAfter),
	})
}

func (h *Handler) handleLimitReset(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")
	identity := limitIdentity(r)

	h.limiter.Reset(r.Context(), profile, identity)

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"profile": profile,
		"status":  "reset",
	})
}

// limitIdentity resolves the bucket identity: an explicit query parameter wins,
// otherwise the caller's own client IP.
func limitIdentity(r *http.Request) string {
	if identity := r.URL.Query().Get("identity"); identity != "" {
		return identity
	}
	return requestcontext.ClientIP(r.Context())
}

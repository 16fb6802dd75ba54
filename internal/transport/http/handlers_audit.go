package httptransport

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"veritrail/internal/audit"
	"veritrail/pkg/domerrors"
	"veritrail/pkg/httputil"
)

type listEventsResponse struct {
	Entries []audit.Entry `json:"entries"`
	Count   int           `json:"count"`
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	limit, err := intQueryParam(r.URL.Query(), "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, err := intQueryParam(r.URL.Query(), "offset")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.auditReader.Query(r.Context(), f, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	httputil.WriteJSON(w, http.StatusOK, listEventsResponse{Entries: entries, Count: len(entries)})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	format := audit.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = audit.FormatJSON
	}

	payload, err := h.auditReader.Export(r.Context(), f, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	contentType := "application/json"
	if format == audit.FormatCSV {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "audit-export."+string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
}

// parseFilter maps query parameters onto the shared audit filter. Multi-value
// parameters are comma separated.
func parseFilter(q url.Values) (audit.Filter, error) {
	var f audit.Filter

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, domerrors.New(domerrors.CodeInvalidInput, "invalid 'from' timestamp, expected RFC3339")
		}
		f.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, domerrors.New(domerrors.CodeInvalidInput, "invalid 'to' timestamp, expected RFC3339")
		}
		f.To = &t
	}

	for _, v := range splitParam(q.Get("action")) {
		f.Actions = append(f.Actions, audit.Action(v))
	}
	for _, v := range splitParam(q.Get("category")) {
		f.Categories = append(f.Categories, audit.Category(v))
	}
	for _, v := range splitParam(q.Get("severity")) {
		f.Severities = append(f.Severities, audit.Severity(v))
	}

	f.ActorID = q.Get("actor_id")
	f.ResourceType = q.Get("resource_type")
	f.ResourceID = q.Get("resource_id")

	if raw := q.Get("success"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, domerrors.New(domerrors.CodeInvalidInput, "invalid 'success' value, expected true or false")
		}
		f.Success = &v
	}

	return f, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intQueryParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, domerrors.New(domerrors.CodeInvalidInput, fmt.Sprintf("invalid %q value", name))
	}
	return v, nil
}

// Package httputil centralizes JSON response writing so handlers stay thin and
// error envelopes stay consistent.
package httputil

import (
	"encoding/json"
	"net/http"

	"veritrail/pkg/domerrors"
)

// WriteJSON serializes v to the response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := domerrors.CodeOf(err)
	WriteJSON(w, domerrors.ToHTTPStatus(code), map[string]string{
		"error": string(code),
	})
}

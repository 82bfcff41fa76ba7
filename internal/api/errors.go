// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/ahenriksen/homeglass/internal/logging"
)

// ErrorBody is the JSON error envelope returned by every API error.
type ErrorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("encoding response failed")
	}
}

// writeError writes the standard error envelope. message must be safe to
// show to the dashboard user; provider details belong in the log, not the
// response.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, ErrorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}})
}

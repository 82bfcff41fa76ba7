// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ahenriksen/homeglass/internal/credential"
	"github.com/ahenriksen/homeglass/internal/integration"
	"github.com/ahenriksen/homeglass/internal/integration/thinq"
	"github.com/ahenriksen/homeglass/internal/integration/workspace"
	"github.com/ahenriksen/homeglass/internal/logging"
)

// integrationTestTimeout bounds the connectivity test's provider round
// trip so the endpoint cannot hang a dashboard settings page.
const integrationTestTimeout = 15 * time.Second

func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.Ready != nil && !h.Ready() {
		writeError(w, r, http.StatusServiceUnavailable, "not_ready", "service is starting up")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// widgetsResponse is the aggregate dashboard payload: every source's
// latest snapshot plus its health record. A failed source appears with
// its status and a null snapshot rather than failing the whole response.
type widgetsResponse struct {
	Sources   []sourceWidget `json:"sources"`
	Generated time.Time      `json:"generated"`
}

type sourceWidget struct {
	integration.SourceStatus
	Snapshot interface{} `json:"snapshot"`
}

func (h *Handler) handleWidgets(w http.ResponseWriter, r *http.Request) {
	statuses := h.Pollers.Status()
	resp := widgetsResponse{
		Sources:   make([]sourceWidget, 0, len(statuses)),
		Generated: time.Now(),
	}
	for _, st := range statuses {
		widget := sourceWidget{SourceStatus: st}
		if snap, ok := h.Snapshots.Get(integration.SnapshotKey(st.Name)); ok {
			widget.Snapshot = snap
		}
		resp.Sources = append(resp.Sources, widget)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleThinQDevices serves the appliance widget. Cache first; a miss
// falls through to a live fetch so the endpoint works before the first
// poll completes.
func (h *Handler) handleThinQDevices(w http.ResponseWriter, r *http.Request) {
	if h.ThinQ == nil {
		writeError(w, r, http.StatusNotFound, "integration_disabled", "ThinQ integration is not enabled")
		return
	}
	if snap, ok := h.Snapshots.Get(integration.SnapshotKey("thinq")); ok {
		writeJSON(w, r, http.StatusOK, snap)
		return
	}

	devices, err := h.ThinQ.Devices(r.Context())
	if err != nil {
		h.writeIntegrationError(w, r, "thinq", err)
		return
	}
	writeJSON(w, r, http.StatusOK, thinq.DevicesView{Devices: devices, FetchedAt: time.Now()})
}

func (h *Handler) handleWorkspaceMail(w http.ResponseWriter, r *http.Request) {
	if h.Workspace == nil {
		writeError(w, r, http.StatusNotFound, "integration_disabled", "Workspace integration is not enabled")
		return
	}
	if snap, ok := h.Snapshots.Get(integration.SnapshotKey("workspace")); ok {
		if view, ok := snap.(workspace.View); ok {
			writeJSON(w, r, http.StatusOK, view.Mail)
			return
		}
	}

	unread, err := h.Workspace.UnreadCount(r.Context())
	if err != nil {
		h.writeIntegrationError(w, r, "workspace", err)
		return
	}
	writeJSON(w, r, http.StatusOK, workspace.MailView{UnreadCount: unread, FetchedAt: time.Now()})
}

func (h *Handler) handleWorkspaceCalendar(w http.ResponseWriter, r *http.Request) {
	if h.Workspace == nil {
		writeError(w, r, http.StatusNotFound, "integration_disabled", "Workspace integration is not enabled")
		return
	}
	if snap, ok := h.Snapshots.Get(integration.SnapshotKey("workspace")); ok {
		if view, ok := snap.(workspace.View); ok {
			writeJSON(w, r, http.StatusOK, view.Calendar)
			return
		}
	}

	events, err := h.Workspace.UpcomingEvents(r.Context())
	if err != nil {
		h.writeIntegrationError(w, r, "workspace", err)
		return
	}
	writeJSON(w, r, http.StatusOK, workspace.CalendarView{Events: events, FetchedAt: time.Now()})
}

// handleIntegrationTest performs a fresh authentication against the named
// provider so the settings page can verify credentials. The cached record
// is deliberately bypassed; a stale cache must not mask bad credentials.
func (h *Handler) handleIntegrationTest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	authenticator, ok := h.Testers[name]
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown_integration", "no such integration: "+name)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), integrationTestTimeout)
	defer cancel()

	if _, err := authenticator.Authenticate(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().
			Str("integration", name).
			Err(err).
			Msg("integration connectivity test failed")
		writeJSON(w, r, http.StatusOK, testResult{
			Integration: name,
			OK:          false,
			Message:     testFailureMessage(err),
		})
		return
	}
	writeJSON(w, r, http.StatusOK, testResult{
		Integration: name,
		OK:          true,
		Message:     "Connection successful",
	})
}

type testResult struct {
	Integration string `json:"integration"`
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
}

// testFailureMessage maps provider errors to a stable, user-facing
// diagnostic. Raw provider bodies stay in the logs.
func testFailureMessage(err error) string {
	switch {
	case isCredentialRejection(err):
		return "Invalid credentials - check the account settings"
	case errors.Is(err, context.DeadlineExceeded):
		return "The provider did not respond in time"
	default:
		return "Could not reach the provider"
	}
}

// isCredentialRejection classifies a connectivity-test failure as a
// credential problem. The test endpoint calls the provider clients
// directly, so auth rejections arrive as transport status errors (401/403,
// or the OAuth token endpoint's 400 invalid_grant), not as the credential
// manager's sentinel; all three shapes count.
func isCredentialRejection(err error) bool {
	if errors.Is(err, credential.ErrAuthenticationFailed) {
		return true
	}
	if integration.IsAuthStatus(err) {
		return true
	}
	var statusErr *integration.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
		return strings.Contains(statusErr.Body, "invalid_grant")
	}
	return false
}

// writeIntegrationError maps a live-fetch failure onto the API error
// envelope.
func (h *Handler) writeIntegrationError(w http.ResponseWriter, r *http.Request, source string, err error) {
	logging.Ctx(r.Context()).Error().
		Str("source", source).
		Err(err).
		Msg("widget fetch failed")
	if errors.Is(err, credential.ErrAuthenticationFailed) {
		writeError(w, r, http.StatusBadGateway, "authentication_failed", "the provider rejected the configured credentials")
		return
	}
	writeError(w, r, http.StatusBadGateway, "provider_unavailable", "the provider could not be reached")
}

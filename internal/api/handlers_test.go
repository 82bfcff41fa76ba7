// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/ahenriksen/homeglass/internal/cache"
	"github.com/ahenriksen/homeglass/internal/config"
	"github.com/ahenriksen/homeglass/internal/credential"
	"github.com/ahenriksen/homeglass/internal/integration"
	"github.com/ahenriksen/homeglass/internal/integration/thinq"
	"github.com/ahenriksen/homeglass/internal/integration/workspace"
)

type stubThinQ struct {
	devices []thinq.DeviceSnapshot
	err     error
	calls   int
}

func (s *stubThinQ) Devices(ctx context.Context) ([]thinq.DeviceSnapshot, error) {
	s.calls++
	return s.devices, s.err
}

type stubWorkspace struct {
	unread int
	events []workspace.Event
	err    error
}

func (s *stubWorkspace) UnreadCount(ctx context.Context) (int, error) {
	return s.unread, s.err
}

func (s *stubWorkspace) UpcomingEvents(ctx context.Context) ([]workspace.Event, error) {
	return s.events, s.err
}

func newTestHandler(t *testing.T) (*Handler, *cache.Snapshot) {
	t.Helper()
	snapshots := cache.New(time.Minute)
	t.Cleanup(func() { snapshots.Close() })
	return &Handler{
		Snapshots: snapshots,
		Pollers:   integration.NewManager(snapshots),
		Testers:   map[string]credential.Authenticator{},
	}, snapshots
}

func doRequest(h *Handler, method, path string) *httptest.ResponseRecorder {
	router := NewRouter(h, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/v1/health/live")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadinessGate(t *testing.T) {
	h, _ := newTestHandler(t)
	ready := false
	h.Ready = func() bool { return ready }

	if rec := doRequest(h, http.MethodGet, "/api/v1/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while starting, got %d", rec.Code)
	}
	ready = true
	if rec := doRequest(h, http.MethodGet, "/api/v1/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 when ready, got %d", rec.Code)
	}
}

func TestThinQDevicesServedFromCache(t *testing.T) {
	h, snapshots := newTestHandler(t)
	stub := &stubThinQ{err: errors.New("must not be called")}
	h.ThinQ = stub

	snapshots.Set(integration.SnapshotKey("thinq"), thinq.DevicesView{
		Devices: []thinq.DeviceSnapshot{{ID: "d1", Name: "Washer"}},
	})

	rec := doRequest(h, http.MethodGet, "/api/v1/widgets/thinq/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.calls != 0 {
		t.Errorf("cached snapshot should not trigger a live fetch, got %d calls", stub.calls)
	}
	if !strings.Contains(rec.Body.String(), "Washer") {
		t.Errorf("expected cached devices in body: %s", rec.Body.String())
	}
}

func TestThinQDevicesLiveFetchOnCacheMiss(t *testing.T) {
	h, _ := newTestHandler(t)
	stub := &stubThinQ{devices: []thinq.DeviceSnapshot{{ID: "d1", Name: "Fridge"}}}
	h.ThinQ = stub

	rec := doRequest(h, http.MethodGet, "/api/v1/widgets/thinq/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.calls != 1 {
		t.Errorf("expected one live fetch, got %d", stub.calls)
	}
	if !strings.Contains(rec.Body.String(), "Fridge") {
		t.Errorf("expected live devices in body: %s", rec.Body.String())
	}
}

func TestThinQDisabledAnswers404(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/v1/widgets/thinq/devices")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for disabled integration, got %d", rec.Code)
	}
}

func TestAuthFailureMapsToBadGateway(t *testing.T) {
	h, _ := newTestHandler(t)
	h.ThinQ = &stubThinQ{err: fmt.Errorf("%w: %w", credential.ErrAuthenticationFailed, errors.New("invalid_grant"))}

	rec := doRequest(h, http.MethodGet, "/api/v1/widgets/thinq/devices")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error envelope: %v", err)
	}
	if body.Error.Code != "authentication_failed" {
		t.Errorf("unexpected error code %q", body.Error.Code)
	}
	if strings.Contains(rec.Body.String(), "invalid_grant") {
		t.Error("provider detail must not leak into the response")
	}
}

func TestWorkspaceMailFromCombinedSnapshot(t *testing.T) {
	h, snapshots := newTestHandler(t)
	h.Workspace = &stubWorkspace{err: errors.New("must not be called")}

	snapshots.Set(integration.SnapshotKey("workspace"), workspace.View{
		Mail: workspace.MailView{UnreadCount: 4},
	})

	rec := doRequest(h, http.MethodGet, "/api/v1/widgets/workspace/mail")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view workspace.MailView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if view.UnreadCount != 4 {
		t.Errorf("expected unread 4, got %d", view.UnreadCount)
	}
}

func TestWorkspaceCalendarLiveFetch(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Workspace = &stubWorkspace{events: []workspace.Event{{ID: "e1", Summary: "Standup"}}}

	rec := doRequest(h, http.MethodGet, "/api/v1/widgets/workspace/calendar")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Standup") {
		t.Errorf("expected events in body: %s", rec.Body.String())
	}
}

func TestWidgetsAggregateSoftFails(t *testing.T) {
	h, snapshots := newTestHandler(t)
	h.Pollers = integration.NewManager(snapshots)

	// One healthy source with a snapshot, one that never succeeded.
	h.Pollers.Register(staticSource{name: "thinq"})
	h.Pollers.Register(staticSource{name: "workspace"})
	snapshots.Set(integration.SnapshotKey("thinq"), thinq.DevicesView{})

	rec := doRequest(h, http.MethodGet, "/api/v1/widgets")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 even with a dead source, got %d", rec.Code)
	}
	var resp struct {
		Sources []struct {
			Name     string      `json:"name"`
			Snapshot interface{} `json:"snapshot"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected both sources listed, got %d", len(resp.Sources))
	}
	for _, src := range resp.Sources {
		if src.Name == "workspace" && src.Snapshot != nil {
			t.Error("source without data should have a null snapshot")
		}
	}
}

type staticSource struct{ name string }

func (s staticSource) Name() string                                 { return s.name }
func (s staticSource) Interval() time.Duration                      { return time.Hour }
func (s staticSource) Fetch(ctx context.Context) (interface{}, error) { return nil, nil }

func TestIntegrationTestSuccess(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Testers["thinq"] = credential.AuthenticatorFunc(func(ctx context.Context) (credential.Record, error) {
		return credential.Record{AccessToken: "T1", ExpiresAt: time.Now().Add(time.Hour)}, nil
	})

	rec := doRequest(h, http.MethodPost, "/api/v1/integrations/thinq/test")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if !result.OK {
		t.Errorf("expected ok result, got %+v", result)
	}
}

func TestIntegrationTestBadCredentials(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Testers["workspace"] = credential.AuthenticatorFunc(func(ctx context.Context) (credential.Record, error) {
		return credential.Record{}, fmt.Errorf("%w: %w", credential.ErrAuthenticationFailed, errors.New("invalid_grant"))
	})

	rec := doRequest(h, http.MethodPost, "/api/v1/integrations/workspace/test")
	if rec.Code != http.StatusOK {
		t.Fatalf("diagnostics are a 200 with ok=false, got %d", rec.Code)
	}
	var result struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.OK {
		t.Error("expected failed result")
	}
	if !strings.Contains(result.Message, "Invalid credentials") {
		t.Errorf("expected stable credential diagnostic, got %q", result.Message)
	}
	if strings.Contains(result.Message, "invalid_grant") {
		t.Error("provider detail must not leak into the diagnostic")
	}
}

// TestIntegrationTestRealClientRejection wires the actual workspace
// client against a token endpoint that rejects the grant, covering both
// rejection shapes providers use: a plain 401 and OAuth's 400
// invalid_grant. Either must surface as the credential diagnostic, not as
// an unreachable-provider message.
func TestIntegrationTestRealClientRejection(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid_client"}`},
		{"invalid grant", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := workspace.NewClient(config.WorkspaceConfig{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				RefreshToken: "revoked-rt",
				AccountEmail: "home@example.com",
				TokenURL:     srv.URL + "/token",
				APIBaseURL:   srv.URL,
			}, credential.NewManager(credential.NewStore()), time.Minute, srv.Client())

			h, _ := newTestHandler(t)
			h.Testers["workspace"] = client

			rec := doRequest(h, http.MethodPost, "/api/v1/integrations/workspace/test")
			if rec.Code != http.StatusOK {
				t.Fatalf("diagnostics are a 200 with ok=false, got %d", rec.Code)
			}
			var result struct {
				OK      bool   `json:"ok"`
				Message string `json:"message"`
			}
			json.Unmarshal(rec.Body.Bytes(), &result)
			if result.OK {
				t.Error("expected failed result")
			}
			if !strings.Contains(result.Message, "Invalid credentials") {
				t.Errorf("expected credential diagnostic, got %q", result.Message)
			}
		})
	}
}

func TestIntegrationTestUnknownName(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodPost, "/api/v1/integrations/nonsense/test")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	h, _ := newTestHandler(t)
	h.CORSAllowedOrigins = []string{"http://dashboard.local"}
	router := NewRouter(h, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://dashboard.local" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}

	// A preflight for an unlisted origin gets no allow header.
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/widgets", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin must not be allowed, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus exposition output")
	}
}

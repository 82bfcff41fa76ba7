// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package api exposes the dashboard's HTTP surface: widget endpoints
// backed by the snapshot cache, health probes, integration connectivity
// tests, and Prometheus metrics.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahenriksen/homeglass/internal/cache"
	"github.com/ahenriksen/homeglass/internal/credential"
	"github.com/ahenriksen/homeglass/internal/integration"
	"github.com/ahenriksen/homeglass/internal/integration/thinq"
	"github.com/ahenriksen/homeglass/internal/integration/workspace"
	"github.com/ahenriksen/homeglass/internal/middleware"
)

// ThinQService is the appliance surface the widget handlers need.
type ThinQService interface {
	Devices(ctx context.Context) ([]thinq.DeviceSnapshot, error)
}

// WorkspaceService is the mail/calendar surface the widget handlers need.
type WorkspaceService interface {
	UnreadCount(ctx context.Context) (int, error)
	UpcomingEvents(ctx context.Context) ([]workspace.Event, error)
}

// Handler holds the API's dependencies. Nil integration services mean the
// integration is disabled; their endpoints answer 404.
type Handler struct {
	Snapshots *cache.Snapshot
	Pollers   *integration.Manager
	ThinQ     ThinQService
	Workspace WorkspaceService

	// Testers maps integration names to their authenticators for the
	// connectivity test endpoint.
	Testers map[string]credential.Authenticator

	// Ready reports whether the service has finished starting up.
	Ready func() bool

	// CORSAllowedOrigins is the origin allowlist for the widget
	// front-end. Empty means allow any origin.
	CORSAllowedOrigins []string
}

// NewRouter builds the chi router with the full middleware stack. limiter
// may be nil when rate limiting is disabled entirely.
func NewRouter(h *Handler, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	origins := h.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.PrometheusMetrics)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health/live", h.handleLiveness)
		r.Get("/health/ready", h.handleReadiness)

		r.Get("/widgets", h.handleWidgets)
		r.Get("/widgets/thinq/devices", h.handleThinQDevices)
		r.Get("/widgets/workspace/mail", h.handleWorkspaceMail)
		r.Get("/widgets/workspace/calendar", h.handleWorkspaceCalendar)

		r.Post("/integrations/{name}/test", h.handleIntegrationTest)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

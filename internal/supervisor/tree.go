// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package supervisor assembles the suture supervision tree that owns the
// service's long-running components: the HTTP server and the integration
// pollers. A crashing component is restarted with exponential backoff
// instead of taking the whole process down.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/ahenriksen/homeglass/internal/logging"
)

// TreeConfig tunes restart behavior for the root supervisor.
type TreeConfig struct {
	// FailureDecay is the seconds over which failure counts decay.
	FailureDecay float64

	// FailureThreshold is the decayed failure count that stops restarts.
	FailureThreshold float64

	// FailureBackoff is the wait before restarting after the threshold.
	FailureBackoff time.Duration

	// Timeout bounds how long a service may take to stop.
	Timeout time.Duration
}

// DefaultTreeConfig returns production restart settings.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureDecay:     5.0,
		FailureThreshold: 30.0,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	}
}

// Tree is the root supervisor plus the child supervisors services are
// attached to.
type Tree struct {
	root         *suture.Supervisor
	integrations *suture.Supervisor
	api          *suture.Supervisor
}

// NewTree builds the supervision tree. Suture's events are routed into
// the application log via its slog hook.
func NewTree(cfg TreeConfig) *Tree {
	spec := suture.Spec{
		EventHook:        (&sutureslog.Handler{Logger: logging.NewSlogLogger()}).MustHook(),
		FailureDecay:     cfg.FailureDecay,
		FailureThreshold: cfg.FailureThreshold,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.Timeout,
	}

	root := suture.New("homeglass", spec)
	integrations := suture.New("integrations", spec)
	api := suture.New("api", spec)
	root.Add(integrations)
	root.Add(api)

	return &Tree{root: root, integrations: integrations, api: api}
}

// AddIntegrationService attaches a service under the integrations
// supervisor.
func (t *Tree) AddIntegrationService(svc suture.Service) suture.ServiceToken {
	return t.integrations.Add(svc)
}

// AddAPIService attaches a service under the api supervisor.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled, then shuts every service
// down in reverse dependency order.
func (t *Tree) Serve(ctx context.Context) error {
	logging.Info().Msg("supervision tree starting")
	err := t.root.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return err
	}
	logging.Info().Msg("supervision tree stopped")
	return nil
}

// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Command server runs the Homeglass backend.
//
// Startup order matters: configuration and logging come first so every
// later failure is reported properly; the credential manager and provider
// clients are plain constructors with no I/O; the supervision tree then
// owns everything that runs, so a crashing poller or HTTP server is
// restarted with backoff instead of killing the process. SIGINT/SIGTERM
// cancel the root context, which drains the tree in order.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/ahenriksen/homeglass/internal/api"
	"github.com/ahenriksen/homeglass/internal/cache"
	"github.com/ahenriksen/homeglass/internal/config"
	"github.com/ahenriksen/homeglass/internal/credential"
	"github.com/ahenriksen/homeglass/internal/integration"
	"github.com/ahenriksen/homeglass/internal/integration/thinq"
	"github.com/ahenriksen/homeglass/internal/integration/workspace"
	"github.com/ahenriksen/homeglass/internal/logging"
	"github.com/ahenriksen/homeglass/internal/middleware"
	"github.com/ahenriksen/homeglass/internal/supervisor"
	"github.com/ahenriksen/homeglass/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Bool("thinq", cfg.ThinQ.Enabled).
		Bool("workspace", cfg.Workspace.Enabled).
		Msg("homeglass starting")

	creds := credential.NewManager(credential.NewStore())
	creds.SetExchangeTimeout(cfg.Credentials.ExchangeTimeout)
	snapshots := cache.New(cfg.Cache.SnapshotTTL)
	defer snapshots.Close()

	pollers := integration.NewManager(snapshots)
	handler := &api.Handler{
		Snapshots:          snapshots,
		Pollers:            pollers,
		Testers:            make(map[string]credential.Authenticator),
		CORSAllowedOrigins: cfg.Security.CORSAllowedOrigins,
	}

	// The exchange timeout is enforced per round trip by the credential
	// manager; the provider clients use the integration default transport
	// timeout as a safety net.
	buffer := cfg.Credentials.RefreshBuffer

	if cfg.ThinQ.Enabled {
		client := thinq.NewClient(cfg.ThinQ, creds, buffer, nil)
		pollers.Register(client)
		handler.ThinQ = client
		handler.Testers["thinq"] = client
	}
	if cfg.Workspace.Enabled {
		client := workspace.NewClient(cfg.Workspace, creds, buffer, nil)
		pollers.Register(client)
		handler.Workspace = client
		handler.Testers["workspace"] = client
	}

	var ready atomic.Bool
	handler.Ready = ready.Load

	var limiter *middleware.RateLimiter
	if !cfg.Security.RateLimitDisabled {
		limiter = middleware.NewRateLimiter(cfg.Security)
		defer limiter.Close()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddIntegrationService(&services.PollerService{Manager: pollers})
	tree.AddAPIService(&services.HTTPService{
		Server:          server,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ready.Store(true)

	return tree.Serve(ctx)
}

// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package config loads and validates Homeglass configuration.
//
// Configuration is loaded via Koanf v2 with layered sources, highest
// priority last:
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (SERVER_PORT, THINQ_USERNAME, ...)
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Security    SecurityConfig    `koanf:"security"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Cache       CacheConfig       `koanf:"cache"`
	ThinQ       ThinQConfig       `koanf:"thinq"`
	Workspace   WorkspaceConfig   `koanf:"workspace"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0.
	Host string `koanf:"host"`

	// Port is the listen port. Default: 8490.
	Port int `koanf:"port"`

	// ReadTimeout bounds request reads. Default: 15s.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds response writes. Default: 30s.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds settings guarding the dashboard's own HTTP surface.
type SecurityConfig struct {
	// RateLimitDisabled turns off per-client rate limiting. Default: false.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`

	// RateLimitReqs is the number of requests allowed per window per
	// client. Default: 120.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window. Default: 1m.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// CORSAllowedOrigins lists the origins the widget front-end may call
	// from. Default: ["*"] — a self-hosted deployment narrows this to its
	// own dashboard origin in the config file.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// CredentialsConfig parameterizes the credential lifecycle manager.
type CredentialsConfig struct {
	// RefreshBuffer is the safety margin before token expiry at which a
	// cached credential is proactively refreshed instead of served.
	// Default: 5m.
	RefreshBuffer time.Duration `koanf:"refresh_buffer"`

	// ExchangeTimeout bounds a single authenticate or refresh round trip
	// to a provider. Default: 30s.
	ExchangeTimeout time.Duration `koanf:"exchange_timeout"`
}

// CacheConfig holds widget snapshot cache settings.
type CacheConfig struct {
	// SnapshotTTL is how long a polled widget snapshot is served before
	// it is considered stale. Default: 1m.
	SnapshotTTL time.Duration `koanf:"snapshot_ttl"`
}

// ThinQConfig holds LG ThinQ appliance cloud settings.
//
// The ThinQ flow performs a gateway pre-login that establishes a session
// cookie, then an OAuth-shaped token exchange. Country and Language select
// the regional gateway.
type ThinQConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Country  string `koanf:"country"`  // ISO country code, e.g. US
	Language string `koanf:"language"` // BCP-47 tag, e.g. en-US

	// GatewayURL overrides the regional gateway endpoint. Intended for
	// tests; empty means the production gateway for Country.
	GatewayURL string `koanf:"gateway_url"`

	// PollInterval is how often the appliance snapshot poller runs.
	// Default: 30s.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// WorkspaceConfig holds Google Workspace settings.
//
// Workspace access uses an offline refresh token obtained once out of
// band (installed-app consent flow); Homeglass exchanges it for
// short-lived access tokens as needed.
type WorkspaceConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RefreshToken string `koanf:"refresh_token"`
	AccountEmail string `koanf:"account_email"`

	// TokenURL overrides the OAuth token endpoint. Intended for tests.
	TokenURL string `koanf:"token_url"`

	// APIBaseURL overrides the Google API base. Intended for tests.
	APIBaseURL string `koanf:"api_base_url"`

	// PollInterval is how often the mail/calendar pollers run.
	// Default: 60s.
	PollInterval time.Duration `koanf:"poll_interval"`
}

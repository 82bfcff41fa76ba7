// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Server.Port != 8490 {
		t.Errorf("expected default port 8490, got %d", cfg.Server.Port)
	}
	if cfg.Credentials.RefreshBuffer != 5*time.Minute {
		t.Errorf("expected default refresh buffer 5m, got %s", cfg.Credentials.RefreshBuffer)
	}
	if cfg.ThinQ.Enabled || cfg.Workspace.Enabled {
		t.Error("integrations should be disabled by default")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("CREDENTIALS_REFRESH_BUFFER", "2m")
	t.Setenv("THINQ_ENABLED", "true")
	t.Setenv("THINQ_USERNAME", "user@example.com")
	t.Setenv("THINQ_PASSWORD", "hunter2")
	t.Setenv("THINQ_COUNTRY", "DE")
	t.Setenv("THINQ_LANGUAGE", "de-DE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Credentials.RefreshBuffer != 2*time.Minute {
		t.Errorf("expected refresh buffer 2m, got %s", cfg.Credentials.RefreshBuffer)
	}
	if !cfg.ThinQ.Enabled || cfg.ThinQ.Country != "DE" {
		t.Errorf("ThinQ env overrides not applied: %+v", cfg.ThinQ)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9100\nworkspace:\n  enabled: true\n  client_id: cid\n  client_secret: sec\n  refresh_token: rt\n  account_email: a@b.example\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100 from file, got %d", cfg.Server.Port)
	}
	if !cfg.Workspace.Enabled || cfg.Workspace.AccountEmail != "a@b.example" {
		t.Errorf("workspace file config not applied: %+v", cfg.Workspace)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SERVER_PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("env should override file: got %d", cfg.Server.Port)
	}
}

func TestValidateRejectsIncompleteIntegrations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "thinq missing password",
			mutate:  func(c *Config) { c.ThinQ.Enabled = true; c.ThinQ.Username = "u" },
			wantErr: "THINQ_PASSWORD",
		},
		{
			name: "thinq bad country",
			mutate: func(c *Config) {
				c.ThinQ.Enabled = true
				c.ThinQ.Username = "u"
				c.ThinQ.Password = "p"
				c.ThinQ.Country = "USA"
			},
			wantErr: "THINQ_COUNTRY",
		},
		{
			name:    "workspace missing refresh token",
			mutate:  func(c *Config) { c.Workspace.Enabled = true; c.Workspace.ClientID = "x"; c.Workspace.ClientSecret = "y" },
			wantErr: "WORKSPACE_REFRESH_TOKEN",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "SERVER_PORT",
		},
		{
			name:    "negative refresh buffer",
			mutate:  func(c *Config) { c.Credentials.RefreshBuffer = -time.Second },
			wantErr: "CREDENTIALS_REFRESH_BUFFER",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "LOGGING_LEVEL",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %q", tc.wantErr, err)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SERVER_PORT", "server.port"},
		{"THINQ_POLL_INTERVAL", "thinq.poll_interval"},
		{"WORKSPACE_CLIENT_ID", "workspace.client_id"},
		{"CREDENTIALS_REFRESH_BUFFER", "credentials.refresh_buffer"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tc := range tests {
		if got := envTransformFunc(tc.in); got != tc.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

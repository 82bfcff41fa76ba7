// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/homeglass/config.yaml",
	"/etc/homeglass/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are
// loaded first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8490,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Security: SecurityConfig{
			RateLimitDisabled:  false,
			RateLimitReqs:      120,
			RateLimitWindow:    time.Minute,
			CORSAllowedOrigins: []string{"*"},
		},
		Credentials: CredentialsConfig{
			RefreshBuffer:   5 * time.Minute,
			ExchangeTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			SnapshotTTL: time.Minute,
		},
		ThinQ: ThinQConfig{
			Enabled:      false,
			Country:      "US",
			Language:     "en-US",
			PollInterval: 30 * time.Second,
		},
		Workspace: WorkspaceConfig{
			Enabled:      false,
			PollInterval: 60 * time.Second,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if present)
//  3. Environment variables: override any setting
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// THINQ_POLL_INTERVAL -> thinq.poll_interval etc.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, CONFIG_PATH first, then the
// default paths. Returns empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sectionPrefixes maps recognized environment variable prefixes to config
// sections. Variables without a recognized prefix are ignored so unrelated
// environment noise never lands in the config tree.
var sectionPrefixes = map[string]string{
	"SERVER_":      "server.",
	"LOGGING_":     "logging.",
	"SECURITY_":    "security.",
	"CREDENTIALS_": "credentials.",
	"CACHE_":       "cache.",
	"THINQ_":       "thinq.",
	"WORKSPACE_":   "workspace.",
}

// envTransformFunc maps environment variable names to koanf paths.
//
//	SERVER_PORT           -> server.port
//	THINQ_POLL_INTERVAL   -> thinq.poll_interval
//	WORKSPACE_CLIENT_ID   -> workspace.client_id
//
// Returning "" tells koanf to skip the variable.
func envTransformFunc(key string) string {
	for prefix, section := range sectionPrefixes {
		if strings.HasPrefix(key, prefix) {
			return section + strings.ToLower(strings.TrimPrefix(key, prefix))
		}
	}
	return ""
}

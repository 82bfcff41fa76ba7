// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
// Integrations are validated only when enabled.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if err := c.validateThinQ(); err != nil {
		return err
	}
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateCredentials() error {
	if c.Credentials.RefreshBuffer < 0 {
		return fmt.Errorf("CREDENTIALS_REFRESH_BUFFER must not be negative, got %s", c.Credentials.RefreshBuffer)
	}
	if c.Credentials.ExchangeTimeout <= 0 {
		return fmt.Errorf("CREDENTIALS_EXCHANGE_TIMEOUT must be positive, got %s", c.Credentials.ExchangeTimeout)
	}
	return nil
}

func (c *Config) validateThinQ() error {
	if !c.ThinQ.Enabled {
		return nil
	}
	if c.ThinQ.Username == "" {
		return fmt.Errorf("THINQ_USERNAME is required when THINQ_ENABLED=true")
	}
	if c.ThinQ.Password == "" {
		return fmt.Errorf("THINQ_PASSWORD is required when THINQ_ENABLED=true")
	}
	if len(c.ThinQ.Country) != 2 {
		return fmt.Errorf("THINQ_COUNTRY must be a two-letter country code, got %q", c.ThinQ.Country)
	}
	if c.ThinQ.PollInterval <= 0 {
		return fmt.Errorf("THINQ_POLL_INTERVAL must be positive, got %s", c.ThinQ.PollInterval)
	}
	return nil
}

func (c *Config) validateWorkspace() error {
	if !c.Workspace.Enabled {
		return nil
	}
	if c.Workspace.ClientID == "" {
		return fmt.Errorf("WORKSPACE_CLIENT_ID is required when WORKSPACE_ENABLED=true")
	}
	if c.Workspace.ClientSecret == "" {
		return fmt.Errorf("WORKSPACE_CLIENT_SECRET is required when WORKSPACE_ENABLED=true")
	}
	if c.Workspace.RefreshToken == "" {
		return fmt.Errorf("WORKSPACE_REFRESH_TOKEN is required when WORKSPACE_ENABLED=true")
	}
	if c.Workspace.AccountEmail == "" || !strings.Contains(c.Workspace.AccountEmail, "@") {
		return fmt.Errorf("WORKSPACE_ACCOUNT_EMAIL must be a valid address, got %q", c.Workspace.AccountEmail)
	}
	if c.Workspace.PollInterval <= 0 {
		return fmt.Errorf("WORKSPACE_POLL_INTERVAL must be positive, got %s", c.Workspace.PollInterval)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled", "":
	default:
		return fmt.Errorf("LOGGING_LEVEL must be one of trace|debug|info|warn|error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return fmt.Errorf("LOGGING_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

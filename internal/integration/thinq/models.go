// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package thinq

import "time"

// sessionResponse is the pre-login handshake reply. The session ID must be
// replayed on every subsequent call alongside the bearer token.
type sessionResponse struct {
	JSessionID string `json:"jsessionId"`
}

// tokenResponse is the gateway's OAuth-style token payload, returned by
// both the password and refresh_token grants.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// deviceListResponse wraps the appliance listing.
type deviceListResponse struct {
	Devices []deviceItem `json:"item"`
}

type deviceItem struct {
	DeviceID   string `json:"deviceId"`
	Alias      string `json:"alias"`
	DeviceType string `json:"deviceType"`
	ModelName  string `json:"modelName"`
	Online     bool   `json:"online"`
	State      string `json:"deviceState"`
}

// DeviceSnapshot is the widget-facing view of one appliance.
type DeviceSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Model  string `json:"model"`
	Online bool   `json:"online"`
	State  string `json:"state"`
}

// DevicesView is the cached view model for the appliances widget.
type DevicesView struct {
	Devices   []DeviceSnapshot `json:"devices"`
	FetchedAt time.Time        `json:"fetched_at"`
}

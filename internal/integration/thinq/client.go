// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package thinq integrates LG ThinQ smart appliances into the dashboard.
//
// The gateway uses a two-step login: a session handshake that yields a
// jsessionId cookie value, then an OAuth-style token exchange. Both the
// bearer token and the session ID must accompany every appliance call, so
// the session ID travels in the credential record's auxiliary state.
package thinq

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahenriksen/homeglass/internal/config"
	"github.com/ahenriksen/homeglass/internal/credential"
	"github.com/ahenriksen/homeglass/internal/integration"
)

const (
	// auxSessionID is the auxiliary-state key the gateway session ID is
	// stored under in the credential record.
	auxSessionID = "jsessionId"

	sessionHeader = "x-thinq-jsessionid"

	// defaultGatewayFormat is the regional gateway endpoint, keyed by
	// lowercase country code.
	defaultGatewayFormat = "https://%s.lgthinq.com:46030/api"
)

// Client talks to the ThinQ gateway. It implements the credential
// Authenticator and Refresher strategies for its own account and the
// integration Source interface for polling.
type Client struct {
	cfg    config.ThinQConfig
	http   *integration.Client
	creds  *credential.Manager
	buffer time.Duration
}

// NewClient creates a ThinQ client. httpClient may be nil.
func NewClient(cfg config.ThinQConfig, creds *credential.Manager, buffer time.Duration, httpClient *http.Client) *Client {
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = fmt.Sprintf(defaultGatewayFormat, strings.ToLower(cfg.Country))
	}
	return &Client{
		cfg:    cfg,
		http:   integration.NewClient("thinq", httpClient),
		creds:  creds,
		buffer: buffer,
	}
}

// AccountKey identifies this client's account in the credential store.
func (c *Client) AccountKey() credential.AccountKey {
	return credential.AccountKey(fmt.Sprintf("thinq:%s:%s", strings.ToLower(c.cfg.Country), c.cfg.Username))
}

// Authenticate performs the full gateway login: session handshake, then a
// password token exchange. The session ID rides in the record's auxiliary
// state so appliance calls can replay it.
func (c *Client) Authenticate(ctx context.Context) (credential.Record, error) {
	session, err := c.openSession(ctx)
	if err != nil {
		return credential.Record{}, fmt.Errorf("opening gateway session: %w", err)
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.cfg.Username},
		"password":   {c.cfg.Password},
		"country":    {c.cfg.Country},
		"language":   {c.cfg.Language},
	}
	tok, err := c.tokenRequest(ctx, form, session)
	if err != nil {
		return credential.Record{}, fmt.Errorf("exchanging credentials: %w", err)
	}
	return c.recordFromToken(tok, session), nil
}

// Refresh exchanges the cached refresh token for a new access token. The
// existing session ID is carried over; the gateway keeps it valid across
// token refreshes.
func (c *Client) Refresh(ctx context.Context, current credential.Record) (credential.Record, error) {
	session := current.Aux(auxSessionID)
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {current.RefreshToken},
	}
	tok, err := c.tokenRequest(ctx, form, session)
	if err != nil {
		return credential.Record{}, fmt.Errorf("%w: %w", credential.ErrRefreshFailed, err)
	}
	return c.recordFromToken(tok, session), nil
}

func (c *Client) openSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL+"/member/login/session", nil)
	if err != nil {
		return "", err
	}
	var resp sessionResponse
	if err := c.http.DoJSON(ctx, req, &resp); err != nil {
		return "", err
	}
	if resp.JSessionID == "" {
		return "", fmt.Errorf("gateway returned no session id")
	}
	return resp.JSessionID, nil
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values, session string) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != "" {
		req.Header.Set(sessionHeader, session)
	}

	var tok tokenResponse
	if err := c.http.DoJSON(ctx, req, &tok); err != nil {
		return tokenResponse{}, err
	}
	if tok.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("gateway returned no access token")
	}
	return tok, nil
}

func (c *Client) recordFromToken(tok tokenResponse, session string) credential.Record {
	return credential.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		Auxiliary:    map[string]string{auxSessionID: session},
	}
}

// Devices lists the account's appliances. A 401/403 from the gateway
// invalidates the cached credential and retries once with a fresh one.
func (c *Client) Devices(ctx context.Context) ([]DeviceSnapshot, error) {
	var devices []DeviceSnapshot
	err := integration.CallWithReauth(ctx, c.creds, c.AccountKey(), c, c, c.buffer, func(rec credential.Record) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GatewayURL+"/service/application/dashboard", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+rec.AccessToken)
		if session := rec.Aux(auxSessionID); session != "" {
			req.Header.Set(sessionHeader, session)
		}

		var resp deviceListResponse
		if err := c.http.DoJSON(ctx, req, &resp); err != nil {
			return err
		}
		devices = devices[:0]
		for _, item := range resp.Devices {
			devices = append(devices, DeviceSnapshot{
				ID:     item.DeviceID,
				Name:   item.Alias,
				Type:   item.DeviceType,
				Model:  item.ModelName,
				Online: item.Online,
				State:  item.State,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// Name implements integration.Source.
func (c *Client) Name() string { return "thinq" }

// Interval implements integration.Source.
func (c *Client) Interval() time.Duration { return c.cfg.PollInterval }

// Fetch implements integration.Source, returning the appliances view
// model for the snapshot cache.
func (c *Client) Fetch(ctx context.Context) (interface{}, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	return DevicesView{Devices: devices, FetchedAt: time.Now()}, nil
}

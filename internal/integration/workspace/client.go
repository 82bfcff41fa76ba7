// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package workspace integrates Google Workspace (Gmail unread count,
// upcoming Calendar events) into the dashboard.
//
// Access tokens come from a long-lived offline refresh token configured
// out of band. There is no interactive login: "authenticate" and "refresh"
// are both refresh_token grants, differing only in whether they use the
// configured offline token or the most recently issued one.
package workspace

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
	defaultTokenURL   = "https://oauth2.googleapis.com/token"
	defaultAPIBaseURL = "https://www.googleapis.com"

	// maxUpcomingEvents caps the calendar widget listing.
	maxUpcomingEvents = 10
)

// Client talks to the Google Workspace APIs. It implements the credential
// Authenticator and Refresher strategies for its account and the
// integration Source interface for polling.
type Client struct {
	cfg    config.WorkspaceConfig
	http   *integration.Client
	creds  *credential.Manager
	buffer time.Duration
	now    func() time.Time
}

// NewClient creates a Workspace client. httpClient may be nil.
func NewClient(cfg config.WorkspaceConfig, creds *credential.Manager, buffer time.Duration, httpClient *http.Client) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Client{
		cfg:    cfg,
		http:   integration.NewClient("workspace", httpClient),
		creds:  creds,
		buffer: buffer,
		now:    time.Now,
	}
}

// AccountKey identifies this client's account in the credential store.
func (c *Client) AccountKey() credential.AccountKey {
	return credential.AccountKey("workspace:" + c.cfg.AccountEmail)
}

// Authenticate exchanges the configured offline refresh token for an
// access token. This is the cold-start and recovery path; it always works
// from the out-of-band token, never from cached state.
func (c *Client) Authenticate(ctx context.Context) (credential.Record, error) {
	rec, err := c.grant(ctx, c.cfg.RefreshToken)
	if err != nil {
		return credential.Record{}, fmt.Errorf("exchanging offline token: %w", err)
	}
	return rec, nil
}

// Refresh exchanges the cached refresh token. Google typically omits a new
// refresh token here; the credential manager carries the old one forward.
func (c *Client) Refresh(ctx context.Context, current credential.Record) (credential.Record, error) {
	rec, err := c.grant(ctx, current.RefreshToken)
	if err != nil {
		return credential.Record{}, fmt.Errorf("%w: %w", credential.ErrRefreshFailed, err)
	}
	return rec, nil
}

func (c *Client) grant(ctx context.Context, refreshToken string) (credential.Record, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return credential.Record{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok tokenResponse
	if err := c.http.DoJSON(ctx, req, &tok); err != nil {
		return credential.Record{}, err
	}
	if tok.AccessToken == "" {
		return credential.Record{}, fmt.Errorf("token endpoint returned no access token")
	}
	return credential.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
	}, nil
}

// UnreadCount returns the INBOX unread message count.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var count int
	err := c.call(ctx, "/gmail/v1/users/me/labels/INBOX", nil, func(rec credential.Record, req *http.Request) error {
		var resp labelResponse
		if err := c.http.DoJSON(ctx, req, &resp); err != nil {
			return err
		}
		count = resp.MessagesUnread
		return nil
	})
	return count, err
}

// UpcomingEvents returns the next events on the primary calendar, expanded
// to single instances and ordered by start time.
func (c *Client) UpcomingEvents(ctx context.Context) ([]Event, error) {
	query := url.Values{
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
		"timeMin":      {c.now().Format(time.RFC3339)},
		"maxResults":   {fmt.Sprintf("%d", maxUpcomingEvents)},
	}

	var events []Event
	err := c.call(ctx, "/calendar/v3/calendars/primary/events", query, func(rec credential.Record, req *http.Request) error {
		var resp eventsResponse
		if err := c.http.DoJSON(ctx, req, &resp); err != nil {
			return err
		}
		events = events[:0]
		for _, item := range resp.Items {
			events = append(events, eventFromItem(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// call runs one authenticated GET under the invalidate-and-retry contract.
func (c *Client) call(ctx context.Context, path string, query url.Values, fn func(credential.Record, *http.Request) error) error {
	return integration.CallWithReauth(ctx, c.creds, c.AccountKey(), c, c, c.buffer, func(rec credential.Record) error {
		u := c.cfg.APIBaseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+rec.AccessToken)
		return fn(rec, req)
	})
}

func eventFromItem(item eventItem) Event {
	ev := Event{ID: item.ID, Summary: item.Summary}
	if item.Start.Date != "" {
		ev.AllDay = true
		ev.Start, _ = time.Parse("2006-01-02", item.Start.Date)
		ev.End, _ = time.Parse("2006-01-02", item.End.Date)
		return ev
	}
	ev.Start = item.Start.DateTime
	ev.End = item.End.DateTime
	return ev
}

// Name implements integration.Source.
func (c *Client) Name() string { return "workspace" }

// Interval implements integration.Source.
func (c *Client) Interval() time.Duration { return c.cfg.PollInterval }

// Fetch implements integration.Source, returning the combined mail and
// calendar view model for the snapshot cache.
func (c *Client) Fetch(ctx context.Context) (interface{}, error) {
	unread, err := c.UnreadCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching unread count: %w", err)
	}
	events, err := c.UpcomingEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching upcoming events: %w", err)
	}
	now := c.now()
	return View{
		Mail:     MailView{UnreadCount: unread, FetchedAt: now},
		Calendar: CalendarView{Events: events, FetchedAt: now},
	}, nil
}

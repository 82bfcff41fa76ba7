// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package workspace

import "time"

// tokenResponse is the OAuth token endpoint payload. Google omits
// refresh_token on refresh grants; the credential manager carries the old
// one forward.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// labelResponse is the Gmail labels.get payload for INBOX.
type labelResponse struct {
	MessagesUnread int `json:"messagesUnread"`
	ThreadsUnread  int `json:"threadsUnread"`
}

// eventsResponse is the Calendar events.list payload.
type eventsResponse struct {
	Items []eventItem `json:"items"`
}

type eventItem struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   eventTime `json:"start"`
	End     eventTime `json:"end"`
}

// eventTime carries either a timed or an all-day boundary.
type eventTime struct {
	DateTime time.Time `json:"dateTime"`
	Date     string    `json:"date"`
}

// MailView is the cached view model for the mail widget.
type MailView struct {
	UnreadCount int       `json:"unread_count"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Event is one upcoming calendar entry as shown on the dashboard.
type Event struct {
	ID      string    `json:"id"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	AllDay  bool      `json:"all_day"`
}

// CalendarView is the cached view model for the calendar widget.
type CalendarView struct {
	Events    []Event   `json:"events"`
	FetchedAt time.Time `json:"fetched_at"`
}

// View is the combined workspace snapshot written by the poller.
type View struct {
	Mail     MailView     `json:"mail"`
	Calendar CalendarView `json:"calendar"`
}

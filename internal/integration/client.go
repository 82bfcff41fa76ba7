// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ahenriksen/homeglass/internal/credential"
	"github.com/ahenriksen/homeglass/internal/logging"
	"github.com/ahenriksen/homeglass/internal/metrics"
)

const (
	// maxErrorBodySize caps how much of a provider error response is read
	// into memory and attached to the returned error.
	maxErrorBodySize = 64 * 1024

	// maxRateLimitRetries bounds the 429 backoff loop.
	maxRateLimitRetries = 5

	// defaultHTTPTimeout is the per-request timeout when the caller does
	// not supply its own http.Client.
	defaultHTTPTimeout = 30 * time.Second
)

// StatusError reports a non-2xx provider response. Body holds at most
// maxErrorBodySize bytes of the response payload.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsAuthStatus reports whether err is a StatusError carrying a 401 or 403,
// the signal that a cached credential has been revoked server-side.
func IsAuthStatus(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden
}

// readBodyForError drains up to maxErrorBodySize bytes of body for error
// reporting. The limit keeps a misbehaving provider from ballooning memory.
func readBodyForError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	if err != nil {
		return ""
	}
	return string(data)
}

// Client is the instrumented HTTP client shared by provider integrations.
// It owns request metrics, 429 backoff, and bounded error-body capture;
// providers layer their auth headers and payload types on top.
type Client struct {
	http   *http.Client
	source string
}

// NewClient creates a client labeled with the integration source name for
// metrics. httpClient may be nil, in which case a client with a sane
// timeout is used.
func NewClient(source string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{http: httpClient, source: source}
}

// DoJSON executes req, decodes a 2xx response body into out (skipped when
// out is nil), and converts non-2xx responses into *StatusError. 429
// responses are retried with exponential backoff (1s, 2s, 4s, ...) up to
// maxRateLimitRetries times, honoring ctx between attempts.
//
// req must carry a context; GetBody must be set when the request has a
// body so retries can replay it (http.NewRequestWithContext does this for
// the common body types).
func (c *Client) DoJSON(ctx context.Context, req *http.Request, out interface{}) error {
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		resp, err := c.do(req)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRateLimitRetries {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
			resp.Body.Close()
			logging.Warn().
				Str("source", c.source).
				Str("url", req.URL.String()).
				Dur("backoff", backoff).
				Int("attempt", attempt+1).
				Msg("provider rate limited request, backing off")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
			if req, err = cloneRequest(req); err != nil {
				return err
			}
			continue
		}

		return c.decode(resp, out)
	}
}

// decode consumes and closes the response body.
func (c *Client) decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: readBodyForError(resp.Body)}
	}
	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", c.source, err)
	}
	return nil
}

// do executes one attempt and records the request metrics.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.IntegrationRequestDuration.WithLabelValues(c.source).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IntegrationRequests.WithLabelValues(c.source, "error").Inc()
		return nil, fmt.Errorf("%s request failed: %w", c.source, err)
	}
	result := "success"
	if resp.StatusCode >= 400 {
		result = fmt.Sprintf("http_%d", resp.StatusCode)
	}
	metrics.IntegrationRequests.WithLabelValues(c.source, result).Inc()
	return resp, nil
}

// cloneRequest prepares a request for a retry attempt, replaying the body
// via GetBody when one exists.
func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replaying request body: %w", err)
		}
		clone.Body = body
	}
	return clone, nil
}

// CallWithReauth acquires a credential record for key and invokes fn with
// it. If fn fails with a 401/403 the cached record is invalidated and fn
// is retried exactly once with a freshly acquired record; any other error,
// and a second auth rejection, are returned as-is. This is the one place
// the invalidate-and-retry contract lives, so every provider client
// handles mid-flight token revocation the same way.
func CallWithReauth(ctx context.Context, mgr *credential.Manager, key credential.AccountKey, authenticator credential.Authenticator, refresher credential.Refresher, buffer time.Duration, fn func(credential.Record) error) error {
	rec, err := mgr.AcquireRecord(ctx, key, authenticator, refresher, buffer)
	if err != nil {
		return err
	}

	err = fn(rec)
	if err == nil || !IsAuthStatus(err) {
		return err
	}

	logging.Info().
		Str("account", key.String()).
		Err(err).
		Msg("cached credential rejected by provider, reauthenticating")
	mgr.Invalidate(key)

	rec, acquireErr := mgr.AcquireRecord(ctx, key, authenticator, refresher, buffer)
	if acquireErr != nil {
		return acquireErr
	}
	return fn(rec)
}

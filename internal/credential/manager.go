// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/ahenriksen/homeglass/internal/logging"
	"github.com/ahenriksen/homeglass/internal/metrics"
)

// DefaultRefreshBuffer is the safety margin before expiry at which a token
// is proactively refreshed rather than served.
const DefaultRefreshBuffer = 5 * time.Minute

// maxAcquireAttempts bounds the re-evaluation loop. An attempt only
// repeats when an Invalidate superseded a completed exchange, so two
// passes settle every realistic interleaving; the third is headroom.
const maxAcquireAttempts = 3

// Manager is the credential lifecycle state machine. One Manager instance
// is constructed at service startup and shared by all integration clients;
// it owns the Store and is the only mutator of it.
//
// Manager performs no HTTP itself. Provider behavior is injected per call
// through the Authenticator and Refresher strategies so every integration
// shares one correctness argument instead of re-deriving it.
type Manager struct {
	store *Store

	// exchangeTimeout bounds each provider round trip (one Refresh call,
	// one Authenticate call). Zero means the caller's ctx is the only
	// bound.
	exchangeTimeout time.Duration

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewManager creates a Manager around an explicitly owned store. The store
// is dependency-injected rather than a package global so test runs and
// multiple dashboard instances in one process stay isolated.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// SetExchangeTimeout bounds every subsequent provider round trip with its
// own context deadline. A multi-step Authenticate (the ThinQ handshake
// plus token exchange) shares one budget; the fallback Authenticate after
// a failed Refresh gets a fresh one.
func (m *Manager) SetExchangeTimeout(d time.Duration) {
	m.exchangeTimeout = d
}

// exchangeCtx derives the per-round-trip context.
func (m *Manager) exchangeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.exchangeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.exchangeTimeout)
}

// Acquire returns a bearer token for key that is guaranteed to satisfy
// expiresAt - now > refreshBuffer at the moment it was read, or an error
// if every refresh and authentication attempt failed. It never returns a
// silently expired token.
//
// Fast path: a comfortably fresh cached record is returned with no I/O and
// no blocking. Otherwise concurrent callers for the same key collapse onto
// a single authenticate-or-refresh round trip; losers block until the
// owner finishes and then share its token or its error. The only blocking
// point is that wait, bounded by one provider round trip and by ctx.
//
// refresher may be nil for providers without a refresh step; buffer <= 0
// selects DefaultRefreshBuffer.
func (m *Manager) Acquire(ctx context.Context, key AccountKey, authenticator Authenticator, refresher Refresher, refreshBuffer time.Duration) (string, error) {
	rec, err := m.AcquireRecord(ctx, key, authenticator, refresher, refreshBuffer)
	if err != nil {
		return "", err
	}
	return rec.AccessToken, nil
}

// AcquireRecord is Acquire for integrations that also need the record's
// auxiliary state (the ThinQ session cookie rides alongside the bearer
// token on every appliance call). Same contract, full record.
func (m *Manager) AcquireRecord(ctx context.Context, key AccountKey, authenticator Authenticator, refresher Refresher, refreshBuffer time.Duration) (Record, error) {
	if key == "" {
		return Record{}, fmt.Errorf("%w: empty key", ErrInvalidAccountKey)
	}
	if authenticator == nil {
		return Record{}, fmt.Errorf("%w: no authenticator configured for %q", ErrInvalidAccountKey, key)
	}
	if refreshBuffer <= 0 {
		refreshBuffer = DefaultRefreshBuffer
	}

	account := key.String()
	for attempt := 0; attempt < maxAcquireAttempts; attempt++ {
		if rec, ok := m.store.Get(key); ok && rec.FreshFor(m.now(), refreshBuffer) {
			metrics.CredentialAcquires.WithLabelValues(account, "cache_hit").Inc()
			return rec, nil
		}

		owns, ticket, handle := m.store.BeginRefresh(key)
		if !owns {
			metrics.CredentialWaiters.WithLabelValues(account).Inc()
			select {
			case <-handle.Done():
			case <-ctx.Done():
				return Record{}, ctx.Err()
			}
			if err := handle.Err(); err != nil {
				metrics.CredentialAcquires.WithLabelValues(account, "error").Inc()
				return Record{}, err
			}
			if rec, ok := m.store.Get(key); ok && rec.FreshFor(m.now(), refreshBuffer) {
				metrics.CredentialAcquires.WithLabelValues(account, "waited").Inc()
				return rec, nil
			}
			// The owner's write was superseded; re-evaluate.
			continue
		}

		rec, stored, err := m.exchange(ctx, key, ticket, authenticator, refresher)
		if err != nil {
			metrics.CredentialAcquires.WithLabelValues(account, "error").Inc()
			return Record{}, err
		}
		if stored {
			return rec, nil
		}
		// An Invalidate superseded the exchange result; re-evaluate.
	}

	return Record{}, fmt.Errorf("acquire for %q kept being superseded by invalidations", key)
}

// exchange is the owner's side of BeginRefresh: try the refresher if the
// cached record carries a refresh token, fall back to the authenticator,
// and finish the in-flight marker exactly once on every path. A panic in
// a provider implementation still releases the marker via the deferred
// FailRefresh, so the account is never left permanently locked.
//
// Returns stored=false when the completed exchange was superseded by an
// Invalidate and its result discarded.
func (m *Manager) exchange(ctx context.Context, key AccountKey, ticket uint64, authenticator Authenticator, refresher Refresher) (result Record, stored bool, err error) {
	account := key.String()
	finished := false
	defer func() {
		if !finished {
			m.store.FailRefresh(key, errExchangeAbandoned)
		}
	}()

	// A stale cached record is still useful here: its refresh token and
	// auxiliary state drive the refresh attempt.
	current, hasCurrent := m.store.Get(key)

	var rec Record
	refreshed := false
	if refresher != nil && hasCurrent && current.RefreshToken != "" {
		start := time.Now()
		callCtx, cancel := m.exchangeCtx(ctx)
		refreshedRec, refreshErr := refresher.Refresh(callCtx, current)
		cancel()
		metrics.CredentialExchangeDuration.WithLabelValues(account, "refresh").Observe(time.Since(start).Seconds())
		if refreshErr != nil {
			metrics.CredentialExchanges.WithLabelValues(account, "refresh", "failure").Inc()
			logging.Warn().
				Str("account", account).
				Err(refreshErr).
				Msg("token refresh failed, falling back to full authentication")
		} else {
			metrics.CredentialExchanges.WithLabelValues(account, "refresh", "success").Inc()
			if refreshedRec.RefreshToken == "" {
				// Provider omitted a new refresh token; carry it over.
				refreshedRec.RefreshToken = current.RefreshToken
			}
			rec = refreshedRec
			refreshed = true
		}
	}

	if !refreshed {
		start := time.Now()
		callCtx, cancel := m.exchangeCtx(ctx)
		authedRec, authErr := authenticator.Authenticate(callCtx)
		cancel()
		metrics.CredentialExchangeDuration.WithLabelValues(account, "authenticate").Observe(time.Since(start).Seconds())
		if authErr != nil {
			metrics.CredentialExchanges.WithLabelValues(account, "authenticate", "failure").Inc()
			wrapped := fmt.Errorf("%w: %w", ErrAuthenticationFailed, authErr)
			finished = true
			m.store.FailRefresh(key, wrapped)
			logging.Error().
				Str("account", account).
				Err(authErr).
				Msg("authentication failed")
			return Record{}, false, wrapped
		}
		metrics.CredentialExchanges.WithLabelValues(account, "authenticate", "success").Inc()
		rec = authedRec
	}

	storedRec, ok := m.store.Put(key, ticket, rec)
	finished = true
	if !ok {
		logging.Debug().
			Str("account", account).
			Msg("credential exchange result superseded by invalidation")
		return Record{}, false, nil
	}

	outcome := "authenticated"
	if refreshed {
		outcome = "refreshed"
	}
	metrics.CredentialAcquires.WithLabelValues(account, outcome).Inc()
	logging.Debug().
		Str("account", account).
		Uint64("generation", storedRec.Generation).
		Time("expires_at", storedRec.ExpiresAt).
		Bool("refreshed", refreshed).
		Msg("credential updated")
	return storedRec, true, nil
}

// Invalidate removes the cached record for key, forcing the next Acquire
// to perform a fresh refresh-or-authenticate cycle. Integration clients
// call it when the provider rejects a cached token that still looked
// valid, then retry their request exactly once.
func (m *Manager) Invalidate(key AccountKey) {
	m.store.Invalidate(key)
	metrics.CredentialInvalidations.WithLabelValues(key.String()).Inc()
	logging.Debug().Str("account", key.String()).Msg("credential invalidated")
}

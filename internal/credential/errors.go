// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package credential

import "errors"

// Error kinds for the credential lifecycle. Concrete failures wrap one of
// these sentinels, so callers classify with errors.Is and still see the
// provider's underlying error in the chain.
var (
	// ErrAuthenticationFailed means the primary login was rejected (bad
	// credentials, provider outage). Terminal for the Acquire call that
	// hit it; the integration client decides retry policy.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRefreshFailed means a refresh token was rejected, expired, or
	// the provider has no refresh capability. Never surfaced by Acquire:
	// the manager always falls back to a full authentication. Refresher
	// implementations return it (wrapped) to trigger that fallback.
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrInvalidAccountKey is a programming error: Acquire was called
	// with an empty key or without an authenticator. Fails fast, never
	// retried.
	ErrInvalidAccountKey = errors.New("invalid account key")

	// errExchangeAbandoned releases waiters when an exchange terminated
	// without reaching Put or FailRefresh, which only happens if a
	// provider implementation panicked mid-call.
	errExchangeAbandoned = errors.New("credential exchange abandoned")
)

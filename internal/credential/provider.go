// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package credential

import "context"

// Authenticator performs a provider's full primary login flow (for ThinQ,
// a gateway pre-login followed by a token exchange) and returns a fully
// populated record. Implementations are pure strategy objects with no
// shared state; the manager imposes no retry or backoff policy on them.
//
// The call must respect ctx; the caller bounds it with the configured
// exchange timeout.
type Authenticator interface {
	Authenticate(ctx context.Context) (Record, error)
}

// Refresher exchanges the refresh token on current for a new access token
// without re-submitting primary credentials. Providers without a refresh
// step either supply no Refresher at all or return an error wrapping
// ErrRefreshFailed, so the manager always falls back to Authenticate.
//
// If the provider's response omits a refresh token, the returned record
// may leave RefreshToken empty; the manager carries the previous one over.
type Refresher interface {
	Refresh(ctx context.Context, current Record) (Record, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context) (Record, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context) (Record, error) {
	return f(ctx)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, current Record) (Record, error)

func (f RefresherFunc) Refresh(ctx context.Context, current Record) (Record, error) {
	return f(ctx, current)
}

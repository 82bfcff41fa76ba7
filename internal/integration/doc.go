// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package integration holds the plumbing shared by all provider
// integrations: the instrumented HTTP client with rate-limit backoff, the
// circuit breaker wrapper, the invalidate-and-retry-once credential
// contract, and the snapshot poller manager that feeds the widget cache.
//
// Provider-specific clients live in the subpackages (thinq, workspace);
// they implement the credential.Authenticator/Refresher strategies and the
// Source interface so the manager can poll them uniformly.
package integration

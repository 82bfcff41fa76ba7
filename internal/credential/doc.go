// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package credential implements the credential lifecycle shared by every
// integration that talks to an OAuth- or session-protected provider API.
//
// The package has two parts:
//
//   - Store: a concurrency-safe in-memory map from account key to the
//     current credential record, plus the per-account in-flight exchange
//     marker that collapses concurrent refreshes.
//   - Manager: the lifecycle state machine. Acquire serves a cached token
//     when it is comfortably inside its lifetime, refreshes it proactively
//     when it is within the refresh buffer of expiry, and falls back to a
//     full authentication when refresh is unavailable or fails.
//
// # Concurrency contract
//
//	     ┌────────────┐  fresh   ┌──────────────┐
//	     │  Acquire   ├─────────>│ cached token │   (no I/O, no blocking)
//	     └─────┬──────┘          └──────────────┘
//	           │ stale/missing
//	     ┌─────▼──────┐  loser   ┌──────────────┐
//	     │BeginRefresh├─────────>│ wait on owner│
//	     └─────┬──────┘          └──────────────┘
//	           │ owner
//	     refresh -> (on failure) authenticate -> Put / FailRefresh
//
// At most one authenticate-or-refresh round trip is in flight per account
// at any time; every other concurrent caller blocks on the owner's result
// and receives the same token or the same error. No lock is held across
// network I/O, so a slow exchange for one account never blocks another
// account's callers.
//
// Provider specifics (login endpoints, token exchange shapes, session
// cookies) live behind the Authenticator and Refresher interfaces supplied
// by each integration; this package issues no HTTP calls itself.
package credential

// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package credential

import (
	"time"
)

// AccountKey is a stable identifier for one authenticated identity at one
// provider, typically "provider:region:username". It must be deterministic
// and collision-free across distinct accounts; it is the index into the
// Store and is immutable once derived from integration configuration.
type AccountKey string

func (k AccountKey) String() string { return string(k) }

// Record is one cached credential. Records are replaced wholesale on every
// successful refresh or re-authentication and never mutated in place, so a
// concurrent reader always sees a consistent record.
type Record struct {
	// AccessToken is the opaque bearer token attached to provider calls.
	AccessToken string

	// RefreshToken is the opaque longer-lived credential used to obtain a
	// new access token without re-submitting primary credentials. Empty
	// for providers without refresh support.
	RefreshToken string

	// ExpiresAt is the absolute expiry of AccessToken.
	ExpiresAt time.Time

	// Auxiliary carries opaque provider-specific state established during
	// login, e.g. the ThinQ session cookie. Never interpreted here.
	Auxiliary map[string]string

	// Generation is assigned by the Store on every successful write and
	// only ever increases for a given account. A gap in the sequence means
	// an invalidation happened between two writes.
	Generation uint64
}

// FreshFor reports whether the record's token can still be handed out at
// now without a refresh, given the caller's refresh buffer.
func (r Record) FreshFor(now time.Time, refreshBuffer time.Duration) bool {
	return r.AccessToken != "" && r.ExpiresAt.Sub(now) > refreshBuffer
}

// Aux returns the auxiliary value for key, or empty string.
func (r Record) Aux(key string) string {
	return r.Auxiliary[key]
}

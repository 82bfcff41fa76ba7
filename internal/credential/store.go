// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package credential

import (
	"sync"
)

// RefreshHandle is the wait handle for an in-flight authenticate-or-refresh
// operation. Callers that lost the BeginRefresh race block on Done and then
// inspect Err.
type RefreshHandle struct {
	done chan struct{}
	// err is written exactly once before done is closed; the channel close
	// provides the happens-before edge for readers.
	err error
}

// Done is closed when the owning caller completes, successfully or not.
func (h *RefreshHandle) Done() <-chan struct{} { return h.done }

// Err returns the owner's failure, or nil on success. Only valid after
// Done is closed.
func (h *RefreshHandle) Err() error { return h.err }

// accountState is the per-account slot: the current record (nil if none),
// the write version, and the in-flight exchange marker, if any.
type accountState struct {
	record *Record

	// version counts writes and invalidations. BeginRefresh hands it to
	// the owner as a ticket; Put discards a write whose ticket is stale,
	// which only happens when Invalidate ran while the exchange was in
	// flight.
	version uint64

	inflight *RefreshHandle
}

// Store is the in-memory credential cache: a concurrency-safe mapping from
// account key to the cached record plus the current in-flight marker.
//
// Lifetime is the process lifetime; there is no persistence and no
// eviction (cardinality is one entry per configured integration account).
// The store is never handed to callers directly; all access goes through
// the Manager.
type Store struct {
	mu       sync.RWMutex
	accounts map[AccountKey]*accountState
}

// NewStore creates an empty credential store.
func NewStore() *Store {
	return &Store{accounts: make(map[AccountKey]*accountState)}
}

// Get returns the current record for key. Non-blocking; a missing account
// or an account with no record returns found=false.
func (s *Store) Get(key AccountKey) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[key]
	if !ok || st.record == nil {
		return Record{}, false
	}
	return *st.record, true
}

// BeginRefresh claims the in-flight exchange for key. Exactly one caller
// per account receives owns=true and becomes responsible for finishing the
// exchange with Put or FailRefresh; everyone else receives owns=false plus
// the owner's handle to block on.
//
// The ticket is the account's write version at claim time; Put uses it to
// detect an Invalidate that ran while the owner's exchange was in flight.
func (s *Store) BeginRefresh(key AccountKey) (owns bool, ticket uint64, handle *RefreshHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(key)
	if st.inflight != nil {
		return false, 0, st.inflight
	}
	st.inflight = &RefreshHandle{done: make(chan struct{})}
	return true, st.version, st.inflight
}

// Put atomically installs rec as the record for key, assigns the next
// generation, releases the in-flight marker, and wakes all waiters.
//
// If the ticket is stale (an Invalidate ran since BeginRefresh) the write
// is discarded: the marker is still released and waiters still wake, but
// the store keeps no record and Put reports stored=false. The caller must
// then re-evaluate rather than hand out the discarded token's record as
// current state.
func (s *Store) Put(key AccountKey, ticket uint64, rec Record) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(key)

	stale := st.version != ticket
	if !stale {
		st.version++
		rec.Generation = st.version
		stored := rec
		st.record = &stored
	}

	if st.inflight != nil {
		close(st.inflight.done)
		st.inflight = nil
	}

	if stale {
		return Record{}, false
	}
	return *st.record, true
}

// FailRefresh records the owner's failure, wakes all waiters with err, and
// clears the in-flight marker so a subsequent caller may retry. The cached
// record, if any, is left untouched.
func (s *Store) FailRefresh(key AccountKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(key)
	if st.inflight == nil {
		return
	}
	st.inflight.err = err
	close(st.inflight.done)
	st.inflight = nil
}

// Invalidate removes the cached record for key so the next Acquire treats
// it as a cache miss. The write version is bumped so an exchange already in
// flight cannot land a now-suspect record over the invalidation.
func (s *Store) Invalidate(key AccountKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.accounts[key]
	if !ok {
		return
	}
	st.record = nil
	st.version++
}

// state returns the slot for key, creating it if needed. Caller holds mu.
func (s *Store) state(key AccountKey) *accountState {
	st, ok := s.accounts[key]
	if !ok {
		st = &accountState{}
		s.accounts[key] = st
	}
	return st
}

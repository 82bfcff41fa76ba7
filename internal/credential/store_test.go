// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package credential

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStoreGetMissing(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("thinq:us:nobody"); ok {
		t.Error("expected miss for unknown account")
	}
}

func TestStorePutThenGet(t *testing.T) {
	s := NewStore()
	key := AccountKey("thinq:us:a@b")

	_, ticket, _ := mustOwn(t, s, key)
	rec, ok := s.Put(key, ticket, Record{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)})
	if !ok {
		t.Fatal("expected Put to store")
	}
	if rec.Generation != 1 {
		t.Errorf("expected generation 1, got %d", rec.Generation)
	}

	got, ok := s.Get(key)
	if !ok || got.AccessToken != "tok" {
		t.Errorf("expected stored record, got %+v found=%v", got, ok)
	}
}

func TestBeginRefreshSingleOwner(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")

	owns1, _, h1 := s.BeginRefresh(key)
	owns2, _, h2 := s.BeginRefresh(key)

	if !owns1 {
		t.Fatal("first caller must own the refresh")
	}
	if owns2 {
		t.Fatal("second caller must not own the refresh")
	}
	if h1 != h2 {
		t.Error("waiter must receive the owner's handle")
	}
}

func TestBeginRefreshIndependentAccounts(t *testing.T) {
	s := NewStore()
	owns1, _, _ := s.BeginRefresh("acct-1")
	owns2, _, _ := s.BeginRefresh("acct-2")
	if !owns1 || !owns2 {
		t.Error("accounts must not share in-flight markers")
	}
}

func TestPutWakesWaiters(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")

	_, ticket, handle := mustOwn(t, s, key)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-handle.Done()
			if handle.Err() != nil {
				t.Errorf("expected nil error after Put, got %v", handle.Err())
			}
		}()
	}

	s.Put(key, ticket, Record{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)})
	wg.Wait()
}

func TestFailRefreshWakesWaitersWithError(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")
	wantErr := errors.New("provider down")

	_, _, handle := mustOwn(t, s, key)
	s.FailRefresh(key, wantErr)

	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("waiters not released after FailRefresh")
	}
	if !errors.Is(handle.Err(), wantErr) {
		t.Errorf("expected %v, got %v", wantErr, handle.Err())
	}

	// The marker is cleared, so a new owner can claim.
	if owns, _, _ := s.BeginRefresh(key); !owns {
		t.Error("expected ownership to be claimable after FailRefresh")
	}
}

func TestGenerationStrictlyIncreasing(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")

	var last uint64
	for i := 0; i < 5; i++ {
		_, ticket, _ := mustOwn(t, s, key)
		rec, ok := s.Put(key, ticket, Record{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)})
		if !ok {
			t.Fatalf("write %d discarded unexpectedly", i)
		}
		if rec.Generation <= last {
			t.Fatalf("generation not increasing: %d after %d", rec.Generation, last)
		}
		last = rec.Generation
	}
}

func TestStaleTicketDiscarded(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")

	// Slow exchange claims ownership, then an invalidation lands while
	// its network call is still in flight.
	_, staleTicket, _ := mustOwn(t, s, key)
	s.Invalidate(key)

	if _, ok := s.Put(key, staleTicket, Record{AccessToken: "stale", ExpiresAt: time.Now().Add(time.Hour)}); ok {
		t.Fatal("stale write must be discarded")
	}
	if _, ok := s.Get(key); ok {
		t.Error("discarded write must not be readable")
	}

	// The next write must still see an increased generation.
	_, ticket, _ := mustOwn(t, s, key)
	rec, ok := s.Put(key, ticket, Record{AccessToken: "fresh", ExpiresAt: time.Now().Add(time.Hour)})
	if !ok {
		t.Fatal("fresh write after invalidation should store")
	}
	if rec.Generation < 2 {
		t.Errorf("generation should account for the invalidation, got %d", rec.Generation)
	}
}

func TestStaleTicketStillReleasesWaiters(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")

	_, staleTicket, handle := mustOwn(t, s, key)
	s.Invalidate(key)
	s.Put(key, staleTicket, Record{AccessToken: "stale"})

	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("waiters must be released even when the write is discarded")
	}
	if owns, _, _ := s.BeginRefresh(key); !owns {
		t.Error("marker must be cleared after a discarded write")
	}
}

func TestInvalidateRemovesRecord(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")

	_, ticket, _ := mustOwn(t, s, key)
	s.Put(key, ticket, Record{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)})
	s.Invalidate(key)

	if _, ok := s.Get(key); ok {
		t.Error("record must be gone after Invalidate")
	}
}

func TestInvalidateUnknownAccountIsNoop(t *testing.T) {
	s := NewStore()
	s.Invalidate("never-seen")
	if _, ok := s.Get("never-seen"); ok {
		t.Error("unexpected record")
	}
}

func TestConcurrentBeginRefreshExactlyOneOwner(t *testing.T) {
	s := NewStore()
	key := AccountKey("acct")

	const callers = 64
	var owners int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if owns, _, _ := s.BeginRefresh(key); owns {
				mu.Lock()
				owners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if owners != 1 {
		t.Errorf("expected exactly one owner, got %d", owners)
	}
}

// mustOwn claims the in-flight marker for key and fails the test if the
// claim is lost.
func mustOwn(t *testing.T, s *Store, key AccountKey) (bool, uint64, *RefreshHandle) {
	t.Helper()
	owns, ticket, handle := s.BeginRefresh(key)
	if !owns {
		t.Fatalf("expected to own refresh for %q", key)
	}
	return owns, ticket, handle
}

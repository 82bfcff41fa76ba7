// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package integration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahenriksen/homeglass/internal/cache"
)

type fakeSource struct {
	name     string
	interval time.Duration
	fetches  atomic.Int64
	err      atomic.Value // error
	view     interface{}
}

func (s *fakeSource) Name() string            { return s.name }
func (s *fakeSource) Interval() time.Duration { return s.interval }

func (s *fakeSource) Fetch(ctx context.Context) (interface{}, error) {
	s.fetches.Add(1)
	if err, ok := s.err.Load().(error); ok && err != nil {
		return nil, err
	}
	return s.view, nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestManagerPollsImmediatelyAndCaches(t *testing.T) {
	snapshots := cache.New(time.Minute)
	defer snapshots.Close()

	src := &fakeSource{name: "thinq", interval: time.Hour, view: "devices"}
	m := NewManager(snapshots)
	m.Register(src)
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, time.Second, func() bool {
		_, ok := snapshots.Get(SnapshotKey("thinq"))
		return ok
	})

	view, _ := snapshots.Get(SnapshotKey("thinq"))
	if view != "devices" {
		t.Errorf("unexpected cached view %v", view)
	}
	if src.fetches.Load() != 1 {
		t.Errorf("expected exactly the immediate fetch, got %d", src.fetches.Load())
	}
}

func TestManagerKeepsPreviousSnapshotOnFailure(t *testing.T) {
	snapshots := cache.New(time.Minute)
	defer snapshots.Close()

	src := &fakeSource{name: "workspace", interval: 20 * time.Millisecond, view: "mail"}
	m := NewManager(snapshots)
	m.Register(src)
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, time.Second, func() bool {
		_, ok := snapshots.Get(SnapshotKey("workspace"))
		return ok
	})

	src.err.Store(errors.New("provider down"))
	waitFor(t, time.Second, func() bool {
		for _, st := range m.Status() {
			if st.Name == "workspace" && !st.Healthy {
				return true
			}
		}
		return false
	})

	if _, ok := snapshots.Get(SnapshotKey("workspace")); !ok {
		t.Error("previous snapshot should survive a failed poll")
	}
}

func TestManagerStatusTracksFailures(t *testing.T) {
	snapshots := cache.New(time.Minute)
	defer snapshots.Close()

	src := &fakeSource{name: "thinq", interval: 10 * time.Millisecond}
	src.err.Store(errors.New("login rejected"))
	m := NewManager(snapshots)
	m.Register(src)
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, time.Second, func() bool {
		st := m.Status()
		return len(st) == 1 && st[0].ConsecutiveFailures >= 2
	})

	st := m.Status()[0]
	if st.Healthy {
		t.Error("expected unhealthy status")
	}
	if st.LastError == "" {
		t.Error("expected last error to be recorded")
	}
	if st.LastSuccess != nil {
		t.Error("expected no success timestamp")
	}
}

func TestManagerStopWaitsForLoops(t *testing.T) {
	snapshots := cache.New(time.Minute)
	defer snapshots.Close()

	src := &fakeSource{name: "thinq", interval: 5 * time.Millisecond, view: "v"}
	m := NewManager(snapshots)
	m.Register(src)
	m.Start(context.Background())

	waitFor(t, time.Second, func() bool { return src.fetches.Load() >= 2 })
	m.Stop()

	after := src.fetches.Load()
	time.Sleep(30 * time.Millisecond)
	if src.fetches.Load() != after {
		t.Error("poll loop kept running after Stop")
	}
}

// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package integration

import (
	"context"
	"sync"
	"time"

	"github.com/ahenriksen/homeglass/internal/cache"
	"github.com/ahenriksen/homeglass/internal/logging"
)

// Source is a pollable integration. Fetch returns the source's current
// view model, ready to be cached and served to widgets as-is.
type Source interface {
	Name() string
	Interval() time.Duration
	Fetch(ctx context.Context) (interface{}, error)
}

// SourceStatus is the health record the aggregate widget endpoint exposes
// per source.
type SourceStatus struct {
	Name                string     `json:"name"`
	Healthy             bool       `json:"healthy"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// Manager polls each registered source on its own ticker and writes the
// results into the snapshot cache under "widgets/<name>". Widget handlers
// read the cache, so a slow or dead provider degrades only its own widget.
type Manager struct {
	snapshots *cache.Snapshot

	mu       sync.RWMutex
	sources  []Source
	breakers map[string]*Breaker
	status   map[string]*SourceStatus

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a poller manager writing into snapshots.
func NewManager(snapshots *cache.Snapshot) *Manager {
	return &Manager{
		snapshots: snapshots,
		breakers:  make(map[string]*Breaker),
		status:    make(map[string]*SourceStatus),
	}
}

// Register adds a source. Must be called before Start.
func (m *Manager) Register(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, src)
	m.breakers[src.Name()] = NewBreaker(src.Name())
	m.status[src.Name()] = &SourceStatus{Name: src.Name()}
}

// SnapshotKey is the cache key a source's view model is stored under.
func SnapshotKey(source string) string {
	return "widgets/" + source
}

// Start launches one poll loop per registered source. Each loop fetches
// immediately so widgets have data as soon as the service is up, then on
// the source's own interval.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.RLock()
	sources := make([]Source, len(m.sources))
	copy(sources, m.sources)
	m.mu.RUnlock()

	for _, src := range sources {
		m.wg.Add(1)
		go m.pollLoop(ctx, src)
	}
	logging.Info().Int("sources", len(sources)).Msg("integration pollers started")
}

// Stop cancels all poll loops and waits for them to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	logging.Info().Msg("integration pollers stopped")
}

func (m *Manager) pollLoop(ctx context.Context, src Source) {
	defer m.wg.Done()

	m.pollOnce(ctx, src)

	ticker := time.NewTicker(src.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.pollOnce(ctx, src)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context, src Source) {
	m.mu.RLock()
	breaker := m.breakers[src.Name()]
	m.mu.RUnlock()

	view, err := breaker.Execute(func() (interface{}, error) {
		return src.Fetch(ctx)
	})
	if err != nil {
		m.recordFailure(src.Name(), err)
		logging.Warn().
			Str("source", src.Name()).
			Err(err).
			Msg("integration poll failed, keeping previous snapshot")
		return
	}

	// A snapshot stays servable for two poll intervals so one missed poll
	// does not blank the widget.
	m.snapshots.SetWithTTL(SnapshotKey(src.Name()), view, 2*src.Interval())
	m.recordSuccess(src.Name())
}

func (m *Manager) recordSuccess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status[name]
	now := time.Now()
	st.Healthy = true
	st.LastSuccess = &now
	st.LastError = ""
	st.ConsecutiveFailures = 0
}

func (m *Manager) recordFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status[name]
	st.Healthy = false
	st.LastError = err.Error()
	st.ConsecutiveFailures++
}

// Status returns a copy of every source's health record, sorted by
// registration order.
func (m *Manager) Status() []SourceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SourceStatus, 0, len(m.sources))
	for _, src := range m.sources {
		out = append(out, *m.status[src.Name()])
	}
	return out
}

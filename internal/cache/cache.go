// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package cache provides the in-memory TTL cache holding widget snapshots.
//
// Pollers write each source's latest view model here; API handlers read
// from it so widget requests never block on provider I/O for sources that
// have a current snapshot.
package cache

import (
	"sync"
	"time"

	"github.com/ahenriksen/homeglass/internal/metrics"
)

// Entry is a cached item with its absolute expiry.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats tracks cache efficiency counters. A copy is returned by
// Snapshot's Stats method so readers never race the cache.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
}

// Snapshot is a thread-safe in-memory cache with per-cache TTL and a
// background cleanup loop.
type Snapshot struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration
	stats   Stats
	stop    chan struct{}
	once    sync.Once
}

// cleanupInterval is how often expired entries are swept out. Reads
// already ignore expired entries, so the sweep only bounds memory.
const cleanupInterval = 5 * time.Minute

// New creates a snapshot cache whose entries live for ttl, and starts the
// background cleanup goroutine. Call Close to stop it.
func New(ttl time.Duration) *Snapshot {
	c := &Snapshot{
		entries: make(map[string]Entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Snapshot) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		metrics.CacheMisses.Inc()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	metrics.CacheHits.Inc()
	return entry.Data, true
}

// Set stores value under key with the cache's TTL.
func (c *Snapshot) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Data: value, ExpiresAt: time.Now().Add(c.ttl)}
}

// SetWithTTL stores value under key with an explicit TTL, overriding the
// cache default. Used by pollers whose sources define their own staleness.
func (c *Snapshot) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Data: value, ExpiresAt: time.Now().Add(ttl)}
}

// Delete removes key from the cache.
func (c *Snapshot) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Snapshot) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Stats returns a copy of the current counters.
func (c *Snapshot) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Keys = len(c.entries)
	return s
}

// Close stops the background cleanup goroutine. Safe to call more than
// once.
func (c *Snapshot) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupLoop sweeps expired entries until Close.
func (c *Snapshot) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

// removeExpired deletes entries past their expiry.
func (c *Snapshot) removeExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			c.stats.Evictions++
			metrics.CacheEvictions.Inc()
		}
	}
}

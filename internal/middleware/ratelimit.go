// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahenriksen/homeglass/internal/config"
	"github.com/ahenriksen/homeglass/internal/logging"
	"github.com/ahenriksen/homeglass/internal/metrics"
)

// clientLimiter pairs a token bucket with its last use, so idle clients
// can be evicted.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a per-client token bucket to the API. A dashboard
// has few distinct clients, so the per-IP map stays small; the cleanup
// loop only guards against address churn.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	disabled bool
	stop     chan struct{}
	once     sync.Once
}

// staleClientAge is how long an idle client entry survives before the
// cleanup loop drops it.
const staleClientAge = 10 * time.Minute

// NewRateLimiter creates a rate limiter from the security config and
// starts its cleanup loop. Call Close to stop it.
func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	limit := rate.Every(cfg.RateLimitWindow / time.Duration(max(cfg.RateLimitReqs, 1)))
	rl := &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    limit,
		burst:    cfg.RateLimitReqs,
		disabled: cfg.RateLimitDisabled,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Middleware rejects requests exceeding the per-client budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.disabled {
			next.ServeHTTP(w, r)
			return
		}
		client := clientAddr(r)
		if !rl.allow(client) {
			metrics.HTTPRequestsRateLimited.Inc()
			logging.Ctx(r.Context()).Warn().
				Str("client", client).
				Str("path", r.URL.Path).
				Msg("request rate limited")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cl, ok := rl.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

// Close stops the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.removeStale()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) removeStale() {
	cutoff := time.Now().Add(-staleClientAge)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, cl := range rl.clients {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}

// clientAddr extracts the client IP, dropping the ephemeral port so one
// browser does not count as many clients.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

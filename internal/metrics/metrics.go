// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package metrics defines the Prometheus instrumentation for Homeglass:
//
//   - Credential lifecycle (acquires, cache hits, refresh/auth outcomes,
//     collapsed waiters)
//   - Integration provider calls and circuit breaker state
//   - Widget snapshot cache efficiency
//   - HTTP request latency and throughput
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Credential Lifecycle Metrics

	// CredentialAcquires counts Acquire calls by outcome:
	// "cache_hit", "refreshed", "authenticated", "waited", "error".
	CredentialAcquires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeglass_credential_acquires_total",
			Help: "Total credential Acquire calls by outcome",
		},
		[]string{"account", "outcome"},
	)

	// CredentialExchanges counts authenticate/refresh round trips by
	// operation ("refresh", "authenticate") and result ("success",
	// "failure").
	CredentialExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeglass_credential_exchanges_total",
			Help: "Total credential refresh/authenticate round trips",
		},
		[]string{"account", "operation", "result"},
	)

	// CredentialExchangeDuration observes the latency of provider
	// authenticate/refresh round trips.
	CredentialExchangeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeglass_credential_exchange_duration_seconds",
			Help:    "Duration of credential refresh/authenticate round trips",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"account", "operation"},
	)

	// CredentialWaiters counts callers that blocked behind another
	// caller's in-flight exchange instead of issuing their own.
	CredentialWaiters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeglass_credential_waiters_total",
			Help: "Callers collapsed onto an in-flight credential exchange",
		},
		[]string{"account"},
	)

	// CredentialInvalidations counts explicit cache invalidations
	// requested by integration clients after provider auth errors.
	CredentialInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeglass_credential_invalidations_total",
			Help: "Explicit credential cache invalidations",
		},
		[]string{"account"},
	)

	// Integration Metrics

	// IntegrationRequests counts outbound provider API calls.
	IntegrationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeglass_integration_requests_total",
			Help: "Outbound integration API calls by source and result",
		},
		[]string{"source", "result"},
	)

	// IntegrationRequestDuration observes outbound call latency.
	IntegrationRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeglass_integration_request_duration_seconds",
			Help:    "Duration of outbound integration API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// CircuitBreakerState tracks breaker state per source
	// (0 = closed, 1 = half-open, 2 = open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homeglass_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homeglass_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"source", "from", "to"},
	)

	// Snapshot Cache Metrics

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeglass_snapshot_cache_hits_total",
			Help: "Widget snapshot cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeglass_snapshot_cache_misses_total",
			Help: "Widget snapshot cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeglass_snapshot_cache_evictions_total",
			Help: "Widget snapshot cache entries evicted by TTL cleanup",
		},
	)

	// HTTP Metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homeglass_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homeglass_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		},
	)

	HTTPRequestsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homeglass_http_requests_rate_limited_total",
			Help: "HTTP requests rejected by the rate limiter",
		},
	)
)

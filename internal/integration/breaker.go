// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package integration

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ahenriksen/homeglass/internal/logging"
	"github.com/ahenriksen/homeglass/internal/metrics"
)

const (
	// intervalWindow is the rolling window over which failure counts are
	// accumulated while the circuit is closed.
	intervalWindow = time.Minute

	// openTimeout is how long the circuit stays open before probing.
	openTimeout = 2 * time.Minute
)

// Breaker wraps a provider's fetch path in a circuit breaker so a flapping
// or offline provider stops consuming poll cycles and widget latency until
// it recovers.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker[interface{}]
	source string
}

// NewBreaker creates a circuit breaker for source. The breaker trips when
// at least 10 requests in the rolling interval have a failure ratio of 60%
// or more, stays open for 2 minutes, then allows up to 3 probes while
// half-open.
func NewBreaker(source string) *Breaker {
	b := &Breaker{source: source}
	b.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        source,
		MaxRequests: 3,
		Interval:    intervalWindow,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
			logging.Warn().
				Str("source", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state changed")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(source).Set(stateToFloat(gobreaker.StateClosed))
	return b
}

// Execute runs fn through the breaker. While the circuit is open it
// returns gobreaker.ErrOpenState without invoking fn.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return b.cb.Execute(fn)
}

// State returns the current breaker state for status reporting.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half_open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Package metrics holds the Prometheus metrics for the resolution engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcome labels.
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeStoreHit    = "store_hit"
	OutcomeMiss        = "miss"
	OutcomeUnavailable = "unavailable"
)

// Metrics aggregates the engine's counters. A nil *Metrics is valid
// everywhere and disables recording, so unit tests don't touch the global
// Prometheus registry.
type Metrics struct {
	Lookups          *prometheus.CounterVec
	CacheErrors      prometheus.Counter
	BreakerOpened    prometheus.Counter
	BreakerRecovered prometheus.Counter
}

// New creates and registers all directory metrics on the default registry.
// Call once per process.
func New() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bindirectory_lookups_total",
			Help: "BIN resolution attempts by outcome",
		}, []string{"outcome"}),
		CacheErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bindirectory_cache_errors_total",
			Help: "Cache transport failures swallowed by the coherency layer",
		}),
		BreakerOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bindirectory_breaker_opened_total",
			Help: "Circuit breakers opened by consecutive failure reports",
		}),
		BreakerRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bindirectory_breaker_recovered_total",
			Help: "Circuit breakers auto-recovered after cooldown",
		}),
	}
}

// RecordLookup counts a resolution attempt by outcome.
func (m *Metrics) RecordLookup(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}

// RecordCacheError counts a swallowed cache failure.
func (m *Metrics) RecordCacheError() {
	if m == nil {
		return
	}
	m.CacheErrors.Inc()
}

// RecordBreakerOpened counts a breaker tripping open.
func (m *Metrics) RecordBreakerOpened() {
	if m == nil {
		return
	}
	m.BreakerOpened.Inc()
}

// RecordBreakerRecovered counts a breaker closing after cooldown.
func (m *Metrics) RecordBreakerRecovered() {
	if m == nil {
		return
	}
	m.BreakerRecovered.Inc()
}

package bfindex

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	addTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bfindex_add_total",
		Help: "Total number of addresses added to indexes",
	})

	lookupTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bfindex_lookup_total",
		Help: "Total number of membership lookups",
	})

	lookupHitTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bfindex_lookup_hit_total",
		Help: "Total number of lookups answered maybe-present",
	})
)

var (
	storeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bfindex_store_total",
		Help: "Total number of index files written",
	})

	loadTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bfindex_load_total",
		Help: "Total number of index files loaded",
	})

	storeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bfindex_store_duration_seconds",
		Help:    "Duration of index store operations",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10), // 0.1ms to ~100ms
	})

	loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bfindex_load_duration_seconds",
		Help:    "Duration of index load operations",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10), // 0.1ms to ~100ms
	})
)

var (
	journalAppendTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bfindex_journal_append_total",
		Help: "Total number of addresses appended to rebuild journals",
	})

	journalReplayTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bfindex_journal_replay_entries_total",
		Help: "Total number of journal entries replayed into filters",
	})
)

// RegisterMetrics registers all bfindex metrics with the given registry.
// Call it once per registry; repeated registration panics, as usual with
// MustRegister.
func RegisterMetrics(registry *prometheus.Registry) {
	registry.MustRegister(
		addTotal, lookupTotal, lookupHitTotal,

		// Persistence
		storeTotal, loadTotal, storeDuration, loadDuration,

		// Journal
		journalAppendTotal, journalReplayTotal,
	)
}

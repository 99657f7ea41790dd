// Copyright 2025 Shadow Atlas Contributors
//
// Package metrics exposes the build pipeline's Prometheus instrumentation.
// These counters and histograms are observational only — the commit and
// proof logic never reads them back. Shaped after the promauto-style
// metrics declarations in beacon-chain/sync/metrics.go.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TuplesIngested counts successfully ingested provider/jurisdiction
	// tuples, labeled by provider.
	TuplesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadow_atlas_tuples_ingested_total",
			Help: "Count of boundary tuples successfully ingested, by provider.",
		},
		[]string{"provider"},
	)

	// TuplesSkipped counts tuples skipped by the change detector because
	// the upstream source was unchanged since the prior snapshot.
	TuplesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadow_atlas_tuples_skipped_total",
			Help: "Count of boundary tuples skipped due to unchanged checksum.",
		},
		[]string{"provider", "reason"},
	)

	// ValidationHalts counts validator halts, labeled by the halt kind
	// (a validator.HaltKind value, e.g. "topology", "cross_source").
	ValidationHalts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadow_atlas_validation_halts_total",
			Help: "Count of validation halts, by kind.",
		},
		[]string{"kind"},
	)

	// DeadLetters counts tuples routed to the dead-letter queue after
	// exhausting retries, labeled by provider.
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadow_atlas_dead_letters_total",
			Help: "Count of tuples routed to the dead-letter queue, by provider.",
		},
		[]string{"provider"},
	)

	// CircuitBreakerTrips counts circuit breaker trips, labeled by
	// provider.
	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shadow_atlas_circuit_breaker_trips_total",
			Help: "Count of circuit breaker trips, by provider.",
		},
		[]string{"provider"},
	)

	// BuildDuration observes the wall-clock duration of a full commit
	// build, in seconds.
	BuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shadow_atlas_build_duration_seconds",
			Help:    "Duration of a full ingest-to-commit build, in seconds.",
			Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
		},
	)

	// SnapshotVersion reports the most recently committed snapshot
	// version number.
	SnapshotVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shadow_atlas_snapshot_version",
			Help: "Version number of the most recently committed snapshot.",
		},
	)

	// PublishLatency observes Distributor.Publish call latency in
	// seconds, labeled by backend.
	PublishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shadow_atlas_publish_latency_seconds",
			Help:    "Latency of publishing a snapshot payload to the content-addressed store.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
)

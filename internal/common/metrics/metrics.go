// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesRun = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_cycles_total",
			Help: "Total number of matching cycles executed",
		},
	)

	CyclesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_cycles_skipped_total",
			Help: "Total number of matching cycles skipped",
		},
		[]string{"reason"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "matching_cycle_duration_seconds",
			Help: "Duration of a full matching cycle in seconds",
		},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "nearby_query_duration_seconds",
			Help: "Duration of proximity queries in seconds",
		},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidates_scored_total",
			Help: "Total number of candidates scored",
		},
	)

	NewMatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "new_matches_total",
			Help: "Total number of newly surfaced matches",
		},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Total number of notification dispatch attempts",
		},
		[]string{"outcome"},
	)

	LocationUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_updates_total",
			Help: "Total number of raw location readings by disposition",
		},
		[]string{"disposition"},
	)

	EngineState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matching_engine_state",
			Help: "Current engine state (0=idle, 1=starting, 2=active, 3=stopping)",
		},
	)
)

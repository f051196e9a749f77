// Package metrics provides Prometheus metrics for docklog.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "docklog"
)

// Tailing metrics
var (
	// LinesRead counts complete lines read, by source.
	LinesRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tail",
			Name:      "lines_read_total",
			Help:      "Total complete lines read from tracked files",
		},
		[]string{"source"},
	)

	// RecordsEmitted counts records written to the output stream, by source and level.
	RecordsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tail",
			Name:      "records_emitted_total",
			Help:      "Total classified records emitted to the output stream",
		},
		[]string{"source", "level"},
	)

	// LinesFiltered counts lines dropped by per-source inclusion regexes.
	LinesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tail",
			Name:      "lines_filtered_total",
			Help:      "Total lines dropped by inclusion regex filters",
		},
		[]string{"source"},
	)

	// ReadErrors counts per-file read and stat failures.
	ReadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tail",
			Name:      "read_errors_total",
			Help:      "Total per-file read or stat failures",
		},
		[]string{"source"},
	)

	// Rotations counts detected file rotations and truncations.
	Rotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tail",
			Name:      "rotations_total",
			Help:      "Total detected file rotations and truncations",
		},
		[]string{"source"},
	)

	// TrackedFiles tracks the current number of tracked files.
	TrackedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tail",
			Name:      "tracked_files",
			Help:      "Number of files currently tracked across all sources",
		},
	)

	// TickDuration tracks how long each poll tick takes.
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tail",
			Name:      "tick_duration_seconds",
			Help:      "Poll tick duration in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
	)
)

// Notification metrics
var (
	// NotificationsSent counts successfully delivered notifications.
	NotificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total notifications delivered",
		},
	)

	// NotificationsFailed counts delivery failures.
	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failed_total",
			Help:      "Total notification delivery failures",
		},
	)

	// NotificationsDropped counts records dropped because the queue was full.
	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total notifications dropped due to a full queue",
		},
	)

	// NotificationsRateLimited counts records dropped by the rate limiter.
	NotificationsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "rate_limited_total",
			Help:      "Total notifications dropped by rate limiting",
		},
	)
)

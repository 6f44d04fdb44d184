package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scoring metrics
	EventsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_events_scored_total",
			Help: "Total number of events scored",
		},
		[]string{"backend", "attack_type"},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentra_scoring_duration_seconds",
			Help:    "Duration of event scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Decision metrics
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_decisions_total",
			Help: "Total number of access decisions by outcome",
		},
		[]string{"decision"},
	)

	// Analyzer metrics
	PacketsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentra_analyzer_packets_total",
			Help: "Total number of packets processed",
		},
	)

	PacketsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentra_analyzer_packets_skipped_total",
			Help: "Total number of malformed packets skipped",
		},
	)

	DetectorFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_analyzer_findings_total",
			Help: "Total number of detector findings",
		},
		[]string{"detector"},
	)

	// Dispatch metrics
	AlertsDispatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentra_alerts_dispatched_total",
			Help: "Total number of alerts fanned out to channels",
		},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentra_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by deduplication",
		},
	)

	ChannelFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentra_channel_failures_total",
			Help: "Total number of channel deliveries that exhausted retries",
		},
		[]string{"channel"},
	)
)

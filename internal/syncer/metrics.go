package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "ecucedit"
	metricsSubsystem = "sync"
)

// Metrics holds the synchronizer's Prometheus collectors.
type Metrics struct {
	// RebuildsTotal counts committed snapshots. Labels: origin.
	RebuildsTotal *prometheus.CounterVec

	// ParseFailuresTotal counts rebuilds skipped because the text did not
	// parse.
	ParseFailuresTotal prometheus.Counter

	// SuppressedEchoesTotal counts notifications dropped because the
	// synchronizer caused them.
	SuppressedEchoesTotal prometheus.Counter

	// CorrelationMissesTotal counts node/offset lookups with no match.
	CorrelationMissesTotal prometheus.Counter

	// RebuildDuration measures parse, index and outline time.
	RebuildDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RebuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "rebuilds_total",
			Help:      "Committed document snapshots by origin",
		}, []string{"origin"}),
		ParseFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "parse_failures_total",
			Help:      "Rebuilds skipped because the text did not parse",
		}),
		SuppressedEchoesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "suppressed_echoes_total",
			Help:      "Change notifications caused by programmatic writes",
		}),
		CorrelationMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "correlation_misses_total",
			Help:      "Node and offset lookups without a match",
		}),
		RebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "rebuild_duration_seconds",
			Help:      "Time to parse, index and outline a document",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.RebuildsTotal,
			m.ParseFailuresTotal,
			m.SuppressedEchoesTotal,
			m.CorrelationMissesTotal,
			m.RebuildDuration,
		)
	}
	return m
}

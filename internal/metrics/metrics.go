// Package metrics exposes ledger and scheduler counters to Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ledger"

// Metrics holds the collectors registered by New.
type Metrics struct {
	entriesPosted  *prometheus.CounterVec
	entriesDeleted prometheus.Counter
	conflicts      prometheus.Counter
	executions     *prometheus.CounterVec
	processDue     prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		entriesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_posted_total",
			Help:      "Journal entries posted, by source.",
		}, []string{"source"}),
		entriesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_deleted_total",
			Help:      "Journal entries deleted.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posting_conflicts_total",
			Help:      "Optimistic-lock conflicts that forced a retry.",
		}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recurring",
			Name:      "executions_total",
			Help:      "Recurring template executions, by status.",
		}, []string{"status"}),
		processDue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "recurring",
			Name:      "process_due_seconds",
			Help:      "Duration of one ProcessDue pass.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.entriesPosted, m.entriesDeleted, m.conflicts, m.executions, m.processDue)
	return m
}

// EntryPosted counts a committed entry.
func (m *Metrics) EntryPosted(source string) {
	if m == nil {
		return
	}
	m.entriesPosted.WithLabelValues(source).Inc()
}

// EntryDeleted counts a committed deletion.
func (m *Metrics) EntryDeleted() {
	if m == nil {
		return
	}
	m.entriesDeleted.Inc()
}

// Conflict counts a retried optimistic-lock conflict.
func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// Execution counts a recurring execution outcome.
func (m *Metrics) Execution(status string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(status).Inc()
}

// ObserveProcessDue records how long a ProcessDue pass took.
func (m *Metrics) ObserveProcessDue(d time.Duration) {
	if m == nil {
		return
	}
	m.processDue.Observe(d.Seconds())
}

// Package metrics provides Prometheus metrics for the reconciliation worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lead_verifier"

// Metrics holds all Prometheus metrics for the reconciliation worker.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Ticks              *prometheus.CounterVec
	TickDuration       prometheus.Histogram
	Batches            *prometheus.CounterVec
	StatusPollFailures prometheus.Counter
	LeadsUpdated       *prometheus.CounterVec
	UnmatchedEmails    prometheus.Counter
	FailedChunks       prometheus.Counter
}

// New registers the worker metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticks_total",
				Help:      "Reconciliation ticks by outcome (ok, failed, skipped)",
			},
			[]string{"outcome"},
		),
		TickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tick_duration_seconds",
				Help:      "Wall time of one reconciliation tick",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~400s
			},
		),
		Batches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Batches handled per tick by result (processed, pending, failed)",
			},
			[]string{"result"},
		),
		StatusPollFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_poll_failures_total",
				Help:      "Provider status polls that returned no usable descriptor",
			},
		),
		LeadsUpdated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_rows_updated_total",
				Help:      "Lead rows written by verification status",
			},
			[]string{"status"},
		),
		UnmatchedEmails: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unmatched_emails_total",
				Help:      "Classified emails with no lead row in their campaign",
			},
		),
		FailedChunks: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "update_chunks_failed_total",
				Help:      "Lead update chunks that returned an error",
			},
		),
	}
}

// ObserveTick records one tick outcome and its duration.
func (m *Metrics) ObserveTick(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Ticks.WithLabelValues(outcome).Inc()
	m.TickDuration.Observe(d.Seconds())
}

// IncBatch counts one batch result.
func (m *Metrics) IncBatch(result string) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(result).Inc()
}

// IncStatusPollFailure counts a failed provider status poll.
func (m *Metrics) IncStatusPollFailure() {
	if m == nil {
		return
	}
	m.StatusPollFailures.Inc()
}

// AddLeadsUpdated counts lead rows written with status.
func (m *Metrics) AddLeadsUpdated(status string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.LeadsUpdated.WithLabelValues(status).Add(float64(rows))
}

// AddUnmatched counts emails that matched no lead.
func (m *Metrics) AddUnmatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.UnmatchedEmails.Add(float64(n))
}

// IncFailedChunk counts one failed update chunk.
func (m *Metrics) IncFailedChunk() {
	if m == nil {
		return
	}
	m.FailedChunks.Inc()
}

package services

import (
	"codonledger/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the ledger.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Write path
	CodonsAppended   prometheus.Counter
	OutcomesAttached prometheus.Counter
	WriteErrors      *prometheus.CounterVec

	// Read path
	QueryResults *prometheus.CounterVec

	// Fanout
	ObserversActive     prometheus.Gauge
	BroadcastsDelivered prometheus.Counter
	BroadcastsDropped   prometheus.Counter

	// Ledger size, refreshed by the stats job
	LedgerSessions prometheus.Gauge
	LedgerCodons   prometheus.Gauge
	LedgerOutcomes prometheus.Gauge
}

// NewMetrics creates and registers the metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CodonsAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "codonledger_codons_appended_total",
			Help: "Total number of codons appended to the ledger",
		}),
		OutcomesAttached: factory.NewCounter(prometheus.CounterOpts{
			Name: "codonledger_outcomes_attached_total",
			Help: "Total number of outcome attachments (including overwrites)",
		}),
		WriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "codonledger_write_errors_total",
			Help: "Rejected writes by error kind",
		}, []string{"kind"}), // validation, not_found

		// source: cache, live, fallback
		QueryResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "codonledger_query_results_total",
			Help: "Codon queries served, by result source",
		}, []string{"source"}),

		ObserversActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codonledger_observers_active",
			Help: "Number of live observer connections",
		}),
		BroadcastsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "codonledger_broadcasts_delivered_total",
			Help: "Update events enqueued to observers",
		}),
		BroadcastsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "codonledger_broadcasts_dropped_total",
			Help: "Update events dropped because an observer buffer was full",
		}),

		LedgerSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codonledger_sessions",
			Help: "Number of strands in the ledger",
		}),
		LedgerCodons: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codonledger_codons",
			Help: "Number of codons in the ledger",
		}),
		LedgerOutcomes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codonledger_outcomes",
			Help: "Number of codons with an attached outcome",
		}),
	}
}

// RecordCodonAppended records a successful append
func (m *Metrics) RecordCodonAppended() {
	if m == nil {
		return
	}
	m.CodonsAppended.Inc()
}

// RecordOutcomeAttached records a successful outcome attachment
func (m *Metrics) RecordOutcomeAttached() {
	if m == nil {
		return
	}
	m.OutcomesAttached.Inc()
}

// RecordWriteError records a rejected write
func (m *Metrics) RecordWriteError(kind string) {
	if m == nil {
		return
	}
	m.WriteErrors.WithLabelValues(kind).Inc()
}

// RecordQuery records where a query result came from
func (m *Metrics) RecordQuery(source models.ResultSource) {
	if m == nil {
		return
	}
	m.QueryResults.WithLabelValues(string(source)).Inc()
}

// RecordObserverConnect records a new observer connection
func (m *Metrics) RecordObserverConnect() {
	if m == nil {
		return
	}
	m.ObserversActive.Inc()
}

// RecordObserverDisconnect records an observer disconnection
func (m *Metrics) RecordObserverDisconnect() {
	if m == nil {
		return
	}
	m.ObserversActive.Dec()
}

// RecordBroadcast records one enqueue attempt to an observer
func (m *Metrics) RecordBroadcast(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.BroadcastsDelivered.Inc()
	} else {
		m.BroadcastsDropped.Inc()
	}
}

// RecordLedgerStats updates the ledger size gauges
func (m *Metrics) RecordLedgerStats(stats models.LedgerStats) {
	if m == nil {
		return
	}
	m.LedgerSessions.Set(float64(stats.Sessions))
	m.LedgerCodons.Set(float64(stats.Codons))
	m.LedgerOutcomes.Set(float64(stats.Outcomes))
}

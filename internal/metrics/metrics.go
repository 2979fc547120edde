// Package metrics records parse run outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insightdelivered/statement-engine/internal/engine"
	"github.com/insightdelivered/statement-engine/internal/models"
)

const namespace = "statement_engine"

// Metrics owns a private registry so that tests and multiple servers in one
// process do not collide on the global one.
type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	transactions *prometheus.CounterVec
	duplicates   *prometheus.CounterVec
	warnings     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// New registers the engine metrics and the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Parse runs by bank and outcome.",
		}, []string{"bank", "outcome"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions extracted by bank.",
		}, []string{"bank"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Transactions flagged as duplicates by bank.",
		}, []string{"bank"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Validation warnings by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing one statement.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"bank"}),
	}
	m.registry.MustRegister(
		m.runs, m.transactions, m.duplicates, m.warnings, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe records the outcome of one ParseStatement call.
func (m *Metrics) Observe(res *engine.Result, err error, elapsed time.Duration) {
	bank := "unknown"
	if res != nil {
		if res.Statement != nil && res.Statement.BankID != "" {
			bank = string(res.Statement.BankID)
		} else if res.Detection.BankID != "" {
			bank = string(res.Detection.BankID)
		}
	}

	m.runs.WithLabelValues(bank, Outcome(err)).Inc()
	m.duration.WithLabelValues(bank).Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	if res.Statement != nil && err == nil {
		m.transactions.WithLabelValues(bank).Add(float64(res.Stats.TransactionCount))
		m.duplicates.WithLabelValues(bank).Add(float64(res.Stats.DuplicateCount))
	}
	for _, w := range res.Validation.Warnings {
		m.warnings.WithLabelValues(string(w.Kind)).Inc()
	}
}

// Outcome labels a run: "ok", the issue kind of an engine error, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := engine.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

// ObserveWarning counts a warning raised outside a parse run.
func (m *Metrics) ObserveWarning(kind models.IssueKind) {
	m.warnings.WithLabelValues(string(kind)).Inc()
}

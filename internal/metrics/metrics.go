// Package metrics defines the prometheus collectors of the ingest pipeline and
// the query API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vkbgraph"

// Query outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeRejected    = "rejected"
	OutcomeMalformed   = "malformed"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds the collectors, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	recordsParsed     prometheus.Counter
	recordsFailed     prometheus.Counter
	ownerMisses       prometheus.Counter
	statementsEmitted prometheus.Counter
	ingestDuration    prometheus.Histogram

	graphStatements prometheus.Gauge
	graphLoads      prometheus.Counter

	queryTotal    *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.recordsParsed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_parsed_total",
		Help:      "Survey records turned into features",
	})
	m.recordsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_failed_total",
		Help:      "Survey records dropped because they could not be parsed",
	})
	m.ownerMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "owner_misses_total",
		Help:      "Features whose owner could not be resolved to an organisation",
	})
	m.statementsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "statements_emitted_total",
		Help:      "Statements produced by the emitter",
	})
	m.ingestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ingest_duration_seconds",
		Help:      "Duration of a full convert run",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	m.graphStatements = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_statements",
		Help:      "Statements in the currently loaded graph",
	})
	m.graphLoads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "graph_loads_total",
		Help:      "Graph (re)loads performed by the store",
	})
	m.queryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Queries served, by kind and outcome",
	}, []string{"kind", "outcome"})
	m.queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Duration of served queries",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	}, []string{"kind"})

	m.registry.MustRegister(
		m.recordsParsed, m.recordsFailed, m.ownerMisses, m.statementsEmitted, m.ingestDuration,
		m.graphStatements, m.graphLoads, m.queryTotal, m.queryDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngest records the outcome of one convert run.
func (m *Metrics) ObserveIngest(parsed, failed, misses, statements int, took time.Duration) {
	m.recordsParsed.Add(float64(parsed))
	m.recordsFailed.Add(float64(failed))
	m.ownerMisses.Add(float64(misses))
	m.statementsEmitted.Add(float64(statements))
	m.ingestDuration.Observe(took.Seconds())
}

// ObserveGraphLoad records a (re)load of the served graph.
func (m *Metrics) ObserveGraphLoad(statements int) {
	m.graphLoads.Inc()
	m.graphStatements.Set(float64(statements))
}

// ObserveQuery records one served query.
func (m *Metrics) ObserveQuery(kind, outcome string, took time.Duration) {
	m.queryTotal.WithLabelValues(kind, outcome).Inc()
	m.queryDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// Package metrics registers the Prometheus collectors for the query
// pipeline. The engine updates latency, row counts, error counts and
// plan-cache hits/misses on every query; the per-operator invocation
// counter changes only when a caller invokes CountOperator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the collectors the engine needs. Callers that
// already run a Prometheus registry should pass it to New instead of
// relying on the default global one.
type Registry struct {
	QueryDuration   *prometheus.HistogramVec
	QueryRows       *prometheus.HistogramVec
	QueryErrors     *prometheus.CounterVec
	PlanCacheHits   prometheus.Counter
	PlanCacheMisses prometheus.Counter
	OperatorCalls   *prometheus.CounterVec
}

// New creates and registers every collector against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests), or
// prometheus.DefaultRegisterer to expose on the process-wide /metrics
// endpoint.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ivgraph",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Time spent translating and executing a Cypher query.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		QueryRows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ivgraph",
			Subsystem: "query",
			Name:      "rows_returned",
			Help:      "Number of rows a query returned.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"procedure"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ivgraph",
			Subsystem: "query",
			Name:      "errors_total",
			Help:      "Query failures by error kind.",
		}, []string{"kind"}),
		PlanCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ivgraph",
			Subsystem: "qcache",
			Name:      "hits_total",
			Help:      "Query plan cache hits.",
		}),
		PlanCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ivgraph",
			Subsystem: "qcache",
			Name:      "misses_total",
			Help:      "Query plan cache misses.",
		}),
		OperatorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ivgraph",
			Subsystem: "operator",
			Name:      "invocations_total",
			Help:      "Retrieval operator invocations by name (knn, text, rrf, ppr, bfs).",
		}, []string{"operator"}),
	}

	reg.MustRegister(
		m.QueryDuration,
		m.QueryRows,
		m.QueryErrors,
		m.PlanCacheHits,
		m.PlanCacheMisses,
		m.OperatorCalls,
	)
	return m
}

// ObserveQuery records a query's outcome and duration.
func (m *Registry) ObserveQuery(outcome string, seconds float64) {
	m.QueryDuration.WithLabelValues(outcome).Observe(seconds)
}

// ObserveRows records how many rows a procedure's query returned.
func (m *Registry) ObserveRows(procedure string, n int) {
	m.QueryRows.WithLabelValues(procedure).Observe(float64(n))
}

// CountError increments the error counter for the given ivgerr.Kind
// string (e.g. "validation", "parse", "timeout").
func (m *Registry) CountError(kind string) {
	m.QueryErrors.WithLabelValues(kind).Inc()
}

// CountOperator increments the invocation counter for a retrieval
// operator by name.
func (m *Registry) CountOperator(name string) {
	m.OperatorCalls.WithLabelValues(name).Inc()
}

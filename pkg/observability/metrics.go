// Package observability exposes prometheus metrics for the HTTP surface and the
// question answering pipeline.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages, used as the "stage" label.
const (
	StageSchema   = "schema"
	StagePrompt   = "prompt"
	StageGenerate = "generate"
	StageValidate = "validate"
	StageExecute  = "execute"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage", "outcome"},
	)

	answersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_answers_total",
			Help: "Total number of answered questions by outcome code.",
		},
		[]string{"outcome"},
	)

	unsafeStatementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_unsafe_statements_total",
			Help: "Total number of model outputs rejected by the read-only gate.",
		},
	)

	injectionFindingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_question_injection_findings_total",
			Help: "Total number of questions flagged by libinjection.",
		},
	)

	schemaIntrospectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_schema_introspections_total",
			Help: "Total number of schema introspections against the datasource.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		stageDurationSeconds,
		answersTotal,
		unsafeStatementsTotal,
		injectionFindingsTotal,
		schemaIntrospectionsTotal,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStage records one pipeline stage. outcome is "ok" or an error code.
func ObserveStage(stage, outcome string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
}

func IncrementAnswers(outcome string) {
	answersTotal.WithLabelValues(outcome).Inc()
}

func IncrementUnsafeStatements() {
	unsafeStatementsTotal.Inc()
}

func IncrementInjectionFindings() {
	injectionFindingsTotal.Inc()
}

func ObserveSchemaIntrospection(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	schemaIntrospectionsTotal.WithLabelValues(outcome).Inc()
}

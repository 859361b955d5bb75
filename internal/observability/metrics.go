package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_http_requests_total",
			Help: "HTTP requests by method, matched route and status code.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querychat_http_request_duration_seconds",
			Help:    "HTTP request latency by method, matched route and status code.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status"},
	)

	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_questions_total",
			Help: "Total number of translated questions by intent.",
		},
		[]string{"intent"},
	)
	resolutionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_resolution_failures_total",
			Help: "Total number of questions whose table or column could not be resolved.",
		},
		[]string{"stage"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_query_executions_total",
			Help: "Total number of executed statements by outcome.",
		},
		[]string{"status"},
	)
	queryExecutionDurationMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querychat_query_execution_duration_ms",
			Help:    "Statement execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)
	schemaTables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querychat_schema_tables",
			Help: "Number of tables in the most recent schema snapshot.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		questionsTotal,
		resolutionFailuresTotal,
		queryExecutionsTotal,
		queryExecutionDurationMs,
		schemaTables,
	)
}

func ObserveQuestion(intent string) {
	if intent == "" {
		intent = "unknown"
	}
	questionsTotal.WithLabelValues(intent).Inc()
}

// ObserveResolutionFailure records a question that stopped at stage, which is
// either "table" or "column".
func ObserveResolutionFailure(stage string) {
	resolutionFailuresTotal.WithLabelValues(stage).Inc()
}

func ObserveExecution(failed bool, elapsed time.Duration) {
	status := "ok"
	if failed {
		status = "error"
	}
	queryExecutionsTotal.WithLabelValues(status).Inc()
	queryExecutionDurationMs.Observe(float64(elapsed.Milliseconds()))
}

func SetSchemaTables(count int) {
	if count < 0 {
		count = 0
	}
	schemaTables.Set(float64(count))
}

// Package metrics registers Prometheus instrumentation for the billing
// engine. All collectors are process-global and registered once; helper
// functions are safe to call before Init, in which case they are no-ops.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "billing_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	runsTotal   *prometheus.CounterVec
	runLatency  *prometheus.HistogramVec
	runWarnings *prometheus.CounterVec
	runEntries  prometheus.Counter

	importRows *prometheus.CounterVec

	invoicesIssued prometheus.Counter
)

// Init registers the engine's collectors.
func Init() {
	registerOnce.Do(func() {
		runsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total pipeline runs by policy and result",
			},
			[]string{"policy", "result"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Pipeline run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"policy"},
		)
		runWarnings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "run_warnings_total",
				Help: "Total run warnings by kind",
			},
			[]string{"kind"},
		)
		runEntries = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "entries_processed_total",
				Help: "Total time entries joined across all runs",
			},
		)

		importRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Total imported input rows by table",
			},
			[]string{"table"},
		)

		invoicesIssued = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoices_issued_total",
				Help: "Total invoice numbers issued",
			},
		)

		prometheus.MustRegister(
			runsTotal,
			runLatency,
			runWarnings,
			runEntries,
			importRows,
			invoicesIssued,
		)
	})
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records one pipeline run.
func ObserveRun(policy, result string, entries int, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if runsTotal != nil {
		runsTotal.WithLabelValues(policy, result).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(policy).Observe(duration.Seconds())
	}
	if runEntries != nil && entries > 0 {
		runEntries.Add(float64(entries))
	}
}

// AddRunWarnings increments the warning counter for one kind.
func AddRunWarnings(kind string, count int) {
	if count <= 0 {
		return
	}
	if runWarnings != nil {
		runWarnings.WithLabelValues(kind).Add(float64(count))
	}
}

// AddImportRows increments the imported-row counter for one input table.
func AddImportRows(table string, count int) {
	if count <= 0 {
		return
	}
	if importRows != nil {
		importRows.WithLabelValues(table).Add(float64(count))
	}
}

// IncInvoiceIssued increments the issued-invoice counter.
func IncInvoiceIssued() {
	if invoicesIssued != nil {
		invoicesIssued.Inc()
	}
}

// Exported result constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

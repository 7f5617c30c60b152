// Package metrics holds the Prometheus collectors of the allergy conflict API.
//
// HTTP traffic:
//   - allergycheck_http_requests_total{method,path,status}
//   - allergycheck_http_request_duration_seconds{method,path}
//   - allergycheck_http_requests_in_flight
//
// Domain:
//   - allergycheck_catalogue_syncs_total{result}
//   - allergycheck_catalogue_sync_duration_seconds
//   - allergycheck_catalogue_size{kind}
//   - allergycheck_conflict_evaluations_total{endpoint,outcome}
//   - allergycheck_patient_cache_lookups_total{result}
//   - allergycheck_rate_limiter_buckets
//
// Collectors are registered with the default registry on package init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "allergycheck"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current in-flight requests",
		},
	)

	CatalogueSyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalogue_syncs_total",
			Help:      "Catalogue refreshes from the clinical backend by result",
		},
		[]string{"result"},
	)

	CatalogueSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalogue_sync_duration_seconds",
			Help:      "Duration of successful catalogue refreshes",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	CatalogueSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalogue_size",
			Help:      "Number of catalogue entries currently served",
		},
		[]string{"kind"},
	)

	ConflictEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_evaluations_total",
			Help:      "Allergy conflict evaluations by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	PatientCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patient_cache_lookups_total",
			Help:      "Patient snapshot cache lookups by result",
		},
		[]string{"result"},
	)

	RateLimiterBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_limiter_buckets",
			Help:      "Number of rate limiter buckets (client IPs seen in the last few minutes)",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
		CatalogueSyncs,
		CatalogueSyncDuration,
		CatalogueSize,
		ConflictEvaluations,
		PatientCacheLookups,
		RateLimiterBuckets,
	)
}

// RecordEvaluation counts one evaluated drug for endpoint
func RecordEvaluation(endpoint string, hasConflict bool) {
	outcome := "clear"
	if hasConflict {
		outcome = "conflict"
	}
	ConflictEvaluations.WithLabelValues(endpoint, outcome).Inc()
}

// Package metrics exposes Prometheus collectors for the burn engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "burn_engine",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "burn_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "burn_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "burn_engine",
			Subsystem: "burns",
			Name:      "submissions_total",
			Help:      "Total approval and burn submissions sent to the ledger.",
		},
		[]string{"kind"},
	)

	outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "burn_engine",
			Subsystem: "burns",
			Name:      "outcomes_total",
			Help:      "Confirmation outcomes by submission kind.",
		},
		[]string{"kind", "status"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "burn_engine",
			Subsystem: "proofs",
			Name:      "verifications_total",
			Help:      "Proof verification attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(httpInFlight, httpRequests, httpDuration, submissions, outcomes, verifications)
}

// Handler serves the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncrementInFlight tracks request concurrency.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight tracks request concurrency.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSubmission counts a submission of the given kind (approve|burn).
func RecordSubmission(kind string) {
	submissions.WithLabelValues(kind).Inc()
}

// RecordOutcome counts a confirmation outcome (confirmed|rejected).
func RecordOutcome(kind, status string) {
	outcomes.WithLabelValues(kind, status).Inc()
}

// RecordVerification counts a verification attempt result
// (verified|invalid_reference|not_found|error).
func RecordVerification(result string) {
	verifications.WithLabelValues(result).Inc()
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice808_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice808_auth_attempts_total",
			Help: "Total auth attempts by event and outcome",
		},
		[]string{"event", "success"},
	)
	generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice808_generations_total",
			Help: "Finished voice generations by type and final status",
		},
		[]string{"type", "status"},
	)
	charactersSynthesized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voice808_characters_synthesized_total",
			Help: "Characters sent to the synthesis backend for completed generations",
		},
	)
	synthesisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voice808_synthesis_duration_seconds",
			Help:    "Latency of calls to the synthesis backend",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		},
	)
)

// ObserveRequest records one handled HTTP request. path should be the route
// template so label cardinality stays bounded.
func ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if path == "" {
		path = "unmatched"
	}
	httpRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// RecordAuthAttempt records a signup, login or token check outcome.
func RecordAuthAttempt(event string, success bool) {
	authAttempts.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

// RecordGeneration counts a generation that reached a terminal status.
func RecordGeneration(kind, status string, characters int) {
	generations.WithLabelValues(kind, status).Inc()
	if status == "completed" && characters > 0 {
		charactersSynthesized.Add(float64(characters))
	}
}

// ObserveSynthesis records how long the backend took to answer.
func ObserveSynthesis(elapsed time.Duration) {
	synthesisDuration.Observe(elapsed.Seconds())
}

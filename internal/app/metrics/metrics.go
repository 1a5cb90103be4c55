package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "framestore"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	manifestValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_validations_total",
			Help:      "Manifest validations by outcome.",
		},
		[]string{"result"},
	)

	frameLikes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_likes_total",
			Help:      "Like toggles by direction.",
		},
		[]string{"direction"},
	)

	analyticsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Tracked frame interaction events by type.",
		},
		[]string{"type"},
	)

	scheduledPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_publishes_total",
			Help:      "Scheduled publish attempts by outcome.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		manifestValidations,
		frameLikes,
		analyticsEvents,
		scheduledPublishes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTPRequest records one completed request. path should be the route
// template so that IDs do not explode label cardinality.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordValidation counts one manifest validation.
func RecordValidation(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	manifestValidations.WithLabelValues(result).Inc()
}

// RecordLike counts one like toggle.
func RecordLike(liked bool) {
	direction := "unlike"
	if liked {
		direction = "like"
	}
	frameLikes.WithLabelValues(direction).Inc()
}

// RecordEvent counts one tracked analytics event.
func RecordEvent(eventType string) {
	analyticsEvents.WithLabelValues(eventType).Inc()
}

// RecordPublish counts one scheduled publish attempt.
func RecordPublish(success bool) {
	status := "failed"
	if success {
		status = "published"
	}
	scheduledPublishes.WithLabelValues(status).Inc()
}

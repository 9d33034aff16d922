package onceflight

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the executor's call
// lifecycle and reliability layers. It is safe for concurrent use. All
// record methods are nil-receiver safe, so an executor without metrics pays
// only a nil check.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	breakerState      *prometheus.GaugeVec
	breakerTrips      *prometheus.CounterVec
	breakerRejections *prometheus.CounterVec

	dedupHits *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "onceflight_requests_total",
				Help: "Total number of calls executed, by outcome",
			},
			[]string{"key", "outcome"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "onceflight_request_duration_seconds",
				Help:    "Duration of calls in seconds, including retries and waiting on shared flights",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"key"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "onceflight_requests_in_flight",
				Help: "Number of callers currently inside Do, including piggybacked waiters",
			},
			[]string{"key"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "onceflight_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"key", "attempt"},
		),
		breakerState: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "onceflight_circuit_breaker_state",
				Help: "Current state of the circuit breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"key"},
		),
		breakerTrips: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "onceflight_circuit_breaker_trips_total",
				Help: "Total number of closed-to-open breaker transitions",
			},
			[]string{"key"},
		),
		breakerRejections: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "onceflight_circuit_breaker_rejections_total",
				Help: "Total number of calls rejected because the circuit was open",
			},
			[]string{"key"},
		),
		dedupHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "onceflight_deduplication_hits_total",
				Help: "Total number of callers that joined an in-flight execution",
			},
			[]string{"key"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "onceflight_errors_total",
				Help: "Total number of attempt failures by type",
			},
			[]string{"type", "key"},
		),
	}
}

// RecordRequest records call count and duration.
func (mc *MetricsCollector) RecordRequest(key, outcome string, duration time.Duration) {
	if mc == nil {
		return
	}

	mc.requestsTotal.WithLabelValues(key, outcome).Inc()
	mc.requestDuration.WithLabelValues(key).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(key string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(key).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(key string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(key).Dec()
}

// RecordRetry increments the retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(key string, attempt int) {
	if mc == nil {
		return
	}

	mc.retriesTotal.WithLabelValues(key, strconv.Itoa(attempt)).Inc()
}

// RecordBreakerState sets the state gauge for key.
func (mc *MetricsCollector) RecordBreakerState(key string, state CircuitState) {
	if mc == nil {
		return
	}

	mc.breakerState.WithLabelValues(key).Set(float64(state))
}

// RecordBreakerTrip increments the trip counter for key.
func (mc *MetricsCollector) RecordBreakerTrip(key string) {
	if mc == nil {
		return
	}

	mc.breakerTrips.WithLabelValues(key).Inc()
}

// RecordBreakerRejection increments the open-circuit rejection counter.
func (mc *MetricsCollector) RecordBreakerRejection(key string) {
	if mc == nil {
		return
	}

	mc.breakerRejections.WithLabelValues(key).Inc()
}

// RecordDedupHit increments the deduplication hit counter.
func (mc *MetricsCollector) RecordDedupHit(key string) {
	if mc == nil {
		return
	}

	mc.dedupHits.WithLabelValues(key).Inc()
}

// RecordError increments the error counter by type.
func (mc *MetricsCollector) RecordError(errorType, key string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, key).Inc()
}

// Package observability provides Prometheus metrics, an instrumented HTTP
// transport and OpenTelemetry tracing for the completion clients.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 10 minutes (the stream resource timeout).
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600}

var (
	// ProviderRequestsTotal counts completion and model-list calls by outcome.
	// Outcome is "ok" or the error kind name (e.g. "rate_limited").
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "operation", "outcome"},
	)

	// ProviderLatency records time from dispatch to the end of the call in seconds.
	// For streams this is the time until the sequence terminates.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailassist_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "operation"},
	)

	// ProviderTokensTotal counts tokens reported by backends, by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// StreamChunksTotal counts chunks delivered to stream consumers.
	StreamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_stream_chunks_total",
			Help: "Stream chunks delivered",
		},
		[]string{"provider"},
	)

	// StreamEventsDroppedTotal counts malformed SSE events skipped by the decoder.
	StreamEventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_stream_events_dropped_total",
			Help: "Malformed stream events dropped",
		},
		[]string{"provider"},
	)

	// StreamsActive tracks streams whose goroutine is still running.
	StreamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailassist_streams_active",
			Help: "Active completion streams",
		},
	)

	// RetryAttemptsTotal counts retries scheduled by the retry policy, by error kind.
	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_retry_attempts_total",
			Help: "Retry attempts",
		},
		[]string{"kind"},
	)

	// HTTPRequestsTotal counts outgoing HTTP requests by host, method and status class.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_http_requests_total",
			Help: "Outgoing HTTP requests",
		},
		[]string{"host", "method", "status"},
	)

	// HTTPRequestDuration records time to response headers for outgoing requests.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailassist_http_request_duration_seconds",
			Help:    "Outgoing HTTP request duration until headers",
			Buckets: LLMBuckets,
		},
		[]string{"host", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		StreamChunksTotal,
		StreamEventsDroppedTotal,
		StreamsActive,
		RetryAttemptsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

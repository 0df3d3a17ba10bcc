package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_messages_total",
			Help: "Total number of inbound platform messages by message type (count)",
		},
		[]string{"type"},
	)

	DispatchOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_outcomes_total",
			Help: "Total number of dispatch decisions by outcome (count)",
		},
		[]string{"outcome"},
	)

	ForwardRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forward_requests_total",
			Help: "Total number of task forwards to remote endpoints (count)",
		},
		[]string{"status"},
	)

	ForwardDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forward_duration_ms",
			Help:    "Duration of task forward deliveries in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
	)

	PushRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_requests_total",
			Help: "Total number of out-of-band push sends (count)",
		},
		[]string{"status"},
	)

	CallbackResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_results_total",
			Help: "Total number of task results received on the callback path (count)",
		},
		[]string{"status"},
	)

	CallbackStreamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_stream_chunks_total",
			Help: "Total number of streamed callback chunks by kind (count)",
		},
		[]string{"kind"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterGatewayMetrics() {
	prometheus.MustRegister(
		WebhookMessagesTotal,
		DispatchOutcomesTotal,
		ForwardRequestsTotal,
		ForwardDuration,
		PushRequestsTotal,
		CallbackResultsTotal,
		CallbackStreamChunksTotal,
	)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerFailures,
	)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookRequestsTotal,
		webhookLatencyMs,
	)
}

var (
	webhookRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Inbound provider notifications by provider and outcome (ok/rejected/malformed/no_match/error).",
		},
		[]string{"provider", "outcome"},
	)

	webhookLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_latency_ms",
			Help:    "Webhook handler latency distribution in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"provider"},
	)
)

func IncWebhook(provider, outcome string) {
	webhookRequestsTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func ObserveWebhookLatency(provider string, ms float64) {
	webhookLatencyMs.WithLabelValues(norm(provider)).Observe(ms)
}

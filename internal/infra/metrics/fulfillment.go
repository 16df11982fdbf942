package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		fulfillmentHandoffsTotal,
		fulfillmentQueueDepth,
	)
}

var (
	fulfillmentHandoffsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_handoffs_total",
			Help: "Fulfillment handoff attempts by result (scheduled/delivered/failed/dropped).",
		},
		[]string{"result"},
	)

	fulfillmentQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fulfillment_queue_depth",
			Help: "Tasks currently buffered in the fulfillment queue.",
		},
	)
)

func IncFulfillmentHandoff(result string) {
	fulfillmentHandoffsTotal.WithLabelValues(norm(result)).Inc()
}

func SetFulfillmentQueueDepth(n int) {
	fulfillmentQueueDepth.Set(float64(n))
}

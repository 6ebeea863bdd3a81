package metrics

import "github.com/prometheus/client_golang/prometheus"

// Billing Prometheus metrics.
var (
	AuthorizationsIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmbg",
			Name:      "authorizations_issued_total",
			Help:      "Total billing authorizations issued",
		},
	)

	AuthorizationsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmbg",
			Name:      "authorizations_rejected_total",
			Help:      "Total authorizations rejected for insufficient funds",
		},
	)

	AuthorizationsVoided = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmbg",
			Name:      "authorizations_voided_total",
			Help:      "Total authorizations voided after failed work",
		},
	)

	Settlements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmbg",
			Name:      "settlements_total",
			Help:      "Total successful settlements",
		},
	)

	SettlementsDuplicate = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "llmbg",
			Name:      "settlements_duplicate_total",
			Help:      "Total duplicate settle attempts rejected",
		},
	)

	UpstreamTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llmbg",
			Name:      "upstream_tokens_total",
			Help:      "Total upstream model tokens consumed",
		},
		[]string{"model", "type"}, // type: "prompt" / "completion"
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "llmbg",
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model", "status"},
	)
)

var billingMetricsRegistered bool

// RegisterBillingMetrics registers Prometheus billing metrics. Must be called once from main.
func RegisterBillingMetrics() {
	if billingMetricsRegistered {
		return
	}
	prometheus.MustRegister(AuthorizationsIssued)
	prometheus.MustRegister(AuthorizationsRejected)
	prometheus.MustRegister(AuthorizationsVoided)
	prometheus.MustRegister(Settlements)
	prometheus.MustRegister(SettlementsDuplicate)
	prometheus.MustRegister(UpstreamTokensTotal)
	prometheus.MustRegister(UpstreamRequestDuration)
	billingMetricsRegistered = true
}

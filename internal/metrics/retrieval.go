package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval Prometheus metrics.
var (
	RetrievalQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prodrag",
			Name:      "retrieval_query_duration_seconds",
			Help:      "Per-collection nearest-neighbor query duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"collection"},
	)

	RetrievalFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prodrag",
			Name:      "retrieval_failures_total",
			Help:      "Per-collection query failures isolated to an empty result",
		},
		[]string{"collection", "reason"}, // "not_found" / "query_error"
	)

	RetrievalResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prodrag",
			Name:      "retrieval_results_total",
			Help:      "Items returned per collection",
		},
		[]string{"collection"},
	)

	RoutingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prodrag",
			Name:      "routing_decisions_total",
			Help:      "Queries routed per collection",
		},
		[]string{"collection"},
	)

	FilterTermsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prodrag",
			Name:      "filter_terms_total",
			Help:      "Extracted filter terms by kind",
		},
		[]string{"kind"}, // "price" / "brand" / "category"
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prodrag",
			Name:      "chat_requests_total",
			Help:      "Chat completion requests by model and status",
		},
		[]string{"model", "status"}, // "success" / "error"
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prodrag",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	ModerationBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prodrag",
			Name:      "moderation_blocked_total",
			Help:      "Chat messages refused by moderation",
		},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers Prometheus retrieval metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalQueryDuration)
	prometheus.MustRegister(RetrievalFailuresTotal)
	prometheus.MustRegister(RetrievalResultsTotal)
	prometheus.MustRegister(RoutingDecisionsTotal)
	prometheus.MustRegister(FilterTermsTotal)
	prometheus.MustRegister(ChatRequestsTotal)
	prometheus.MustRegister(ChatRequestDuration)
	prometheus.MustRegister(ModerationBlockedTotal)
	retrievalMetricsRegistered = true
}

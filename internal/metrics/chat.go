package metrics

import "github.com/prometheus/client_golang/prometheus"

// Chat outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Retrieval and chat pipeline metrics.
var (
	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labchat",
			Name:      "search_request_duration_seconds",
			Help:      "Vector search duration per target field",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"field", "status"},
	)

	RetrievedCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "labchat",
			Name:      "retrieved_candidates",
			Help:      "Candidates left after merge and score filtering",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40},
		},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labchat",
			Name:      "chat_requests_total",
			Help:      "Chat turns by outcome",
		},
		[]string{"outcome"},
	)
)

var chatMetricsRegistered bool

// RegisterChatMetrics registers retrieval and chat metrics. Must be called once from main.
func RegisterChatMetrics() {
	if chatMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(RetrievedCandidates)
	prometheus.MustRegister(ChatRequestsTotal)
	chatMetricsRegistered = true
}

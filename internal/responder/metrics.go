package responder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// responsesTotal counts response cycles by language and outcome.
	responsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Subsystem: "responder",
			Name:      "responses_total",
			Help:      "Total number of response cycles by language and status",
		},
		[]string{"language", "status"},
	)

	// responseDuration tracks end-to-end response cycle latency.
	responseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "answerd",
			Subsystem: "responder",
			Name:      "response_duration_seconds",
			Help:      "Duration of response cycles in seconds by language and status",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"language", "status"},
	)

	// contextDocuments tracks how many documents survive merging and
	// truncation per response.
	contextDocuments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "answerd",
			Subsystem: "responder",
			Name:      "context_documents",
			Help:      "Number of context documents handed to generation per response",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// collectionSize reports the live document count per domain, updated
	// each time a response cycle prepares registry state.
	collectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "answerd",
			Subsystem: "collections",
			Name:      "documents",
			Help:      "Live document count per business domain",
		},
		[]string{"domain"},
	)
)

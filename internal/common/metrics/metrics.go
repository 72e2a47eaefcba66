// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestItemsValidated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_request_items_validated_total",
			Help: "Total request items validated, by outcome",
		},
		[]string{"outcome"},
	)

	RequestsArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_requests_archived_total",
			Help: "Total requests canonicalized into the archive, by outcome",
		},
		[]string{"outcome"},
	)

	PayloadsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_payloads_generated_total",
			Help: "Total invocation payloads produced by expansion",
		},
	)

	PayloadsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_payloads_dispatched_total",
			Help: "Total payloads reaching a terminal dispatch state, by status",
		},
		[]string{"status"},
	)

	DispatchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "intake_dispatch_retries_total",
			Help: "Total dispatch attempts beyond the first",
		},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "intake_dispatch_duration_seconds",
			Help: "Duration of a payload dispatch including retries",
		},
	)
)

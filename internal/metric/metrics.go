package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment webhook notifications, labeled by outcome
	// (processed / ignored / invalid / error)
	WebhookNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "balm",
		Subsystem: "checkout",
		Name:      "webhook_notifications_total",
		Help:      "Payment webhook notifications received",
	}, []string{"outcome"})

	// Fulfillment job executions, labeled by outcome
	// (success / retryable / fatal / exhausted / already_processed)
	FulfillmentJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "balm",
		Subsystem: "fulfillment",
		Name:      "jobs_total",
		Help:      "Shipping fulfillment job executions",
	}, []string{"outcome"})

	// Duration of one fulfillment attempt, carrier calls included
	FulfillmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "balm",
		Subsystem: "fulfillment",
		Name:      "attempt_duration_seconds",
		Help:      "Duration of one fulfillment attempt",
		Buckets:   prometheus.DefBuckets,
	})

	// Order status transitions, labeled by target status
	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "balm",
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Order status transitions applied",
	}, []string{"to"})

	// HTTP request latency summary, labeled by status code
	RequestMetrics = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  "balm",
		Subsystem:  "http",
		Name:       "request",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	}, []string{"status"})
)

func ObserveRequest(t time.Duration, status int) {
	RequestMetrics.WithLabelValues(strconv.Itoa(status)).Observe(t.Seconds())
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velora_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "velora_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RidesStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "velora_rides_started_total",
			Help: "Total number of rides started",
		},
	)

	RidesEndedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "velora_rides_ended_total",
			Help: "Total number of rides ended",
		},
	)

	RideDurationMinutes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "velora_ride_duration_minutes",
			Help:    "Completed ride duration in minutes",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
		},
	)

	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velora_ledger_entries_total",
			Help: "Total number of ledger entries written",
		},
		[]string{"reason"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "velora_webhook_events_total",
			Help: "Total number of payment webhook events processed",
		},
		[]string{"type", "outcome"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordRideStarted() {
	RidesStartedTotal.Inc()
}

func RecordRideEnded(minutes float64) {
	RidesEndedTotal.Inc()
	RideDurationMinutes.Observe(minutes)
}

func RecordLedgerEntry(reason string) {
	LedgerEntriesTotal.WithLabelValues(reason).Inc()
}

func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

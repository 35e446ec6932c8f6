package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	followUpsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "followups_sent_total",
			Help: "Follow-up entries appended, by cadence stage",
		},
		[]string{"stage"},
	)

	followUpErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "followup_evaluation_errors_total",
			Help: "Lead evaluations aborted by a store error",
		},
	)

	usageNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_notifications_total",
			Help: "Usage notifications written, by channel and kind",
		},
		[]string{"channel", "kind"},
	)

	deliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_failures_total",
			Help: "Outbound messages that could not be handed off or delivered",
		},
		[]string{"channel"},
	)

	tickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of scheduler ticks",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"job"},
	)

	ticksSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_skipped_total",
			Help: "Ticks skipped because the previous tick of the same job was still running",
		},
		[]string{"job"},
	)
)

func RecordFollowUpSent(stage string) {
	followUpsSent.WithLabelValues(stage).Inc()
}

func RecordFollowUpError() {
	followUpErrors.Inc()
}

func RecordUsageNotification(channel, kind string) {
	usageNotifications.WithLabelValues(channel, kind).Inc()
}

func RecordDeliveryFailure(channel string) {
	deliveryFailures.WithLabelValues(channel).Inc()
}

func ObserveTick(job string, seconds float64) {
	tickDuration.WithLabelValues(job).Observe(seconds)
}

func RecordTickSkipped(job string) {
	ticksSkipped.WithLabelValues(job).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		expiryNotifyRunsTotal,
		expiryNotificationsTotal,
		expiryNotifyDuration,
	)
}

var (
	expiryNotifyRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_notify_runs_total",
			Help: "Expiration notification sweeps, labeled by result.",
		},
		[]string{"result"}, // 'ok', 'failed', 'skipped'
	)

	expiryNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_notifications_total",
			Help: "Expiration e-mails, labeled by result.",
		},
		[]string{"result"}, // 'sent', 'failed'
	)

	expiryNotifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_notify_duration_seconds",
			Help:    "Duration of expiration notification sweeps.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func IncExpiryNotifyRun(result string) {
	expiryNotifyRunsTotal.WithLabelValues(norm(result)).Inc()
}

func IncExpiryNotification(result string) {
	expiryNotificationsTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveExpiryNotifyDuration(seconds float64) {
	expiryNotifyDuration.Observe(seconds)
}

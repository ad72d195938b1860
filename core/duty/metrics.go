package duty

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the prometheus metrics of the duty service.
type Metrics struct {
	Draws                *prometheus.CounterVec
	Notifications        *prometheus.CounterVec
	NotificationDuration prometheus.Histogram
}

// NewMetrics creates and registers the duty metrics. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Draws: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffeeduty_draws_total",
				Help: "Total number of draws by source and outcome",
			},
			[]string{"source", "status"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coffeeduty_notifications_total",
				Help: "Total number of duty notifications by email backend and result",
			},
			[]string{"backend", "result"},
		),
		NotificationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coffeeduty_notification_duration_seconds",
				Help:    "Time spent sending a duty notification in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.Draws, m.Notifications, m.NotificationDuration)
	}
	return m
}

func (m *Metrics) recordDraw(source Source, status Status) {
	if m == nil {
		return
	}
	m.Draws.WithLabelValues(string(source), string(status)).Inc()
}

func (m *Metrics) recordNotification(backend, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(backend, result).Inc()
	m.NotificationDuration.Observe(seconds)
}

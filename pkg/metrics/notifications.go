package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics tracks the dispatcher queue and sink outcomes.
type NotificationMetrics struct {
	enqueued  *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	depth     prometheus.Gauge
}

// NewNotificationMetrics registers the notification metrics on the provided registerer.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	m := &NotificationMetrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_enqueued_total",
			Help:      "Notifications accepted by the dispatcher.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications discarded before delivery.",
		}, []string{"event", "reason"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Notifications handed to a sink successfully.",
		}, []string{"sink"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notification sink deliveries that failed.",
		}, []string{"sink"}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_queue_depth",
			Help:      "Notifications waiting in the dispatcher queue.",
		}),
	}
	reg.MustRegister(m.enqueued, m.dropped, m.delivered, m.failed, m.depth)
	return m
}

func (m *NotificationMetrics) IncEnqueued(event string) {
	if m == nil || m.enqueued == nil {
		return
	}
	m.enqueued.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *NotificationMetrics) IncDropped(event, reason string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(event), normalizeLabel(reason)).Inc()
}

func (m *NotificationMetrics) IncDelivered(sink string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(sink)).Inc()
}

func (m *NotificationMetrics) IncFailed(sink string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(sink)).Inc()
}

func (m *NotificationMetrics) SetQueueDepth(depth int) {
	if m == nil || m.depth == nil {
		return
	}
	m.depth.Set(float64(depth))
}

// DroppedCounter exposes the drop counter for one (event, reason) pair.
func (m *NotificationMetrics) DroppedCounter(event, reason string) prometheus.Counter {
	return m.dropped.WithLabelValues(normalizeLabel(event), normalizeLabel(reason))
}

// DeliveredCounter exposes the success counter for a sink.
func (m *NotificationMetrics) DeliveredCounter(sink string) prometheus.Counter {
	return m.delivered.WithLabelValues(normalizeLabel(sink))
}

// FailedCounter exposes the failure counter for a sink.
func (m *NotificationMetrics) FailedCounter(sink string) prometheus.Counter {
	return m.failed.WithLabelValues(normalizeLabel(sink))
}

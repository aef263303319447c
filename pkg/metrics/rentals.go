package metrics

import "github.com/prometheus/client_golang/prometheus"

// RentalMetrics counts lifecycle transitions and rejected commands.
type RentalMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewRentalMetrics registers the rental metrics on the provided registerer.
func NewRentalMetrics(reg prometheus.Registerer) *RentalMetrics {
	if reg == nil {
		return &RentalMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rental_transitions_total",
		Help:      "Rental status transitions applied.",
	}, []string{"from", "to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rental_rejections_total",
		Help:      "Rental commands rejected, by error code.",
	}, []string{"command", "reason"})
	reg.MustRegister(transitions, rejections)
	return &RentalMetrics{transitions: transitions, rejections: rejections}
}

// IncTransition records a committed status change. from is empty for new rentals.
func (m *RentalMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	if from == "" {
		from = "none"
	}
	m.transitions.WithLabelValues(from, normalizeLabel(to)).Inc()
}

// IncRejection records a command that failed with a typed error.
func (m *RentalMetrics) IncRejection(command, reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(command), normalizeLabel(reason)).Inc()
}

package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit throughput and loss.
type Metrics struct {
	Emitted *prometheus.CounterVec
	Dropped prometheus.Counter
	Failed  prometheus.Counter
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feedlink_audit_events_emitted_total",
			Help: "Audit events accepted into the buffer, by type",
		}, []string{"type"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedlink_audit_events_dropped_total",
			Help: "Audit events dropped because the buffer was full or the sink circuit was open",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "feedlink_audit_sink_failures_total",
			Help: "Audit sink append failures",
		}),
	}
}

func (m *Metrics) IncrementEmitted(t EventType) {
	m.Emitted.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) IncrementDropped() {
	m.Dropped.Inc()
}

func (m *Metrics) IncrementFailed() {
	m.Failed.Inc()
}

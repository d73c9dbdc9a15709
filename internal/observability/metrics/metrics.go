package metrics

import "github.com/prometheus/client_golang/prometheus"

// GateMetrics exposes counters/histograms for the moderation gate.
type GateMetrics struct {
	decisionsTotal *prometheus.CounterVec
	turnsTotal     *prometheus.CounterVec
	turnLatency    *prometheus.HistogramVec
}

func NewGateMetrics(reg prometheus.Registerer) *GateMetrics {
	m := &GateMetrics{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatgate",
			Subsystem: "moderation",
			Name:      "decisions_total",
			Help:      "Moderation decisions by pipeline stage and category",
		}, []string{"stage", "category", "outcome"}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatgate",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Completed chat turns by terminal outcome",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatgate",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one chat turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.decisionsTotal, m.turnsTotal, m.turnLatency)
	return m
}

// ObserveDecision records one moderation decision. Category is empty for
// allowed decisions; stage is "rules" or "classifier".
func (m *GateMetrics) ObserveDecision(stage, category string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "blocked"
	if allowed {
		outcome = "allowed"
		category = ""
	}
	m.decisionsTotal.WithLabelValues(stage, category, outcome).Inc()
}

// ObserveTurn records a finished chat turn and its latency.
func (m *GateMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(seconds)
}

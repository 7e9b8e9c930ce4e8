package supervisor

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional Prometheus hook, safe to use when nil.
type Metrics struct {
	scaleUps   prometheus.Counter
	scaleDowns prometheus.Counter
}

// NewMetrics builds and registers scale-up/scale-down counters under the
// given namespace and supervisor name.
func NewMetrics(namespace, name string) *Metrics {
	m := &Metrics{
		scaleUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: name,
			Name:      "scale_ups_total",
			Help:      "Total workers added by the supervisor across all watched branches.",
		}),
		scaleDowns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: name,
			Name:      "scale_downs_total",
			Help:      "Total workers removed by the supervisor across all watched branches.",
		}),
	}
	prometheus.MustRegister(m.scaleUps, m.scaleDowns)
	return m
}

func (m *Metrics) onScaleUp() {
	if m != nil {
		m.scaleUps.Inc()
	}
}

func (m *Metrics) onScaleDown() {
	if m != nil {
		m.scaleDowns.Inc()
	}
}

package branch

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional Prometheus hook. A nil *Metrics is always safe to
// call methods on: every method is a no-op on a nil receiver, so a Branch
// built without WithMetrics never creates or registers any collector.
type Metrics struct {
	submitted prometheus.Counter
	completed prometheus.Counter
	failed    prometheus.Counter
	active    prometheus.Gauge
	queued    prometheus.Gauge
}

// NewMetrics builds and registers a Metrics set under the given namespace
// and branch name (used as the subsystem label), mirroring the
// Counter/Gauge shape a worker pool typically exposes: submitted/completed/
// failed task counts and an active-worker gauge.
func NewMetrics(namespace, branchName string) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: branchName,
			Name:      "tasks_submitted_total",
			Help:      "Total tasks submitted to the branch.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: branchName,
			Name:      "tasks_completed_total",
			Help:      "Total tasks that ran to completion without panicking.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: branchName,
			Name:      "tasks_failed_total",
			Help:      "Total tasks that panicked.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: branchName,
			Name:      "active_workers",
			Help:      "Current number of workers in the branch.",
		}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: branchName,
			Name:      "queued_tasks",
			Help:      "Current number of tasks waiting in the branch queue.",
		}),
	}
	prometheus.MustRegister(m.submitted, m.completed, m.failed, m.active, m.queued)
	return m
}

func (m *Metrics) onSubmit() {
	if m != nil {
		m.submitted.Inc()
	}
}

func (m *Metrics) onComplete() {
	if m != nil {
		m.completed.Inc()
	}
}

func (m *Metrics) onFailure() {
	if m != nil {
		m.failed.Inc()
	}
}

func (m *Metrics) setWorkers(n int) {
	if m != nil {
		m.active.Set(float64(n))
	}
}

func (m *Metrics) setQueued(n int) {
	if m != nil {
		m.queued.Set(float64(n))
	}
}

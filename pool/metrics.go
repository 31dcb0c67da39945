package pool

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports pool activity to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	submitted prometheus.Counter
	forked    prometheus.Counter
	stolen    prometheus.Counter
	canceled  prometheus.Counter
	executed  *prometheus.CounterVec
	duration  prometheus.Histogram
	workers   prometheus.Gauge
	busyGauge prometheus.Gauge
}

// NewMetrics creates the pool collectors under namespace and registers them
// with reg. Use a fresh prometheus.NewRegistry() per pool in tests; registering
// twice on the same registry fails.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Tasks submitted from outside the pool.",
		}),
		forked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_forked_total",
			Help:      "Subtasks forked by running tasks.",
		}),
		stolen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_stolen_total",
			Help:      "Tasks taken from another worker's deque.",
		}),
		canceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_canceled_total",
			Help:      "Tasks completed without running because they were cancelled.",
		}),
		executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_executed_total",
			Help:      "Task bodies executed, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of task bodies, including time spent joining children.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Workers of the running pool.",
		}),
		busyGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_busy",
			Help:      "Workers currently executing a top-level task.",
		}),
	}

	collectors := []prometheus.Collector{
		m.submitted, m.forked, m.stolen, m.canceled,
		m.executed, m.duration, m.workers, m.busyGauge,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) incSubmitted() {
	if m != nil {
		m.submitted.Inc()
	}
}

func (m *Metrics) incForked() {
	if m != nil {
		m.forked.Inc()
	}
}

func (m *Metrics) incStolen() {
	if m != nil {
		m.stolen.Inc()
	}
}

func (m *Metrics) incCanceled() {
	if m != nil {
		m.canceled.Inc()
	}
}

func (m *Metrics) observe(info TaskInfo, err error) {
	if m == nil {
		return
	}

	m.duration.Observe(info.Duration.Seconds())

	var panicErr *TaskPanicError
	switch {
	case err == nil:
		m.executed.WithLabelValues("success").Inc()
	case errors.As(err, &panicErr):
		m.executed.WithLabelValues("panic").Inc()
	default:
		m.executed.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) setWorkers(n int) {
	if m != nil {
		m.workers.Set(float64(n))
	}
}

func (m *Metrics) busy(delta float64) {
	if m != nil {
		m.busyGauge.Add(delta)
	}
}

package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors the engine reports into. A
// nil *Metrics disables instrumentation; every method is nil-safe.
type Metrics struct {
	executions *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	commits    prometheus.Counter
	rollbacks  prometheus.Counter
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowsql",
			Name:      "executions_total",
			Help:      "Statement executions by operation.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowsql",
			Name:      "execution_failures_total",
			Help:      "Failed statement executions by operation.",
		}, []string{"op"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowsql",
			Name:      "execution_duration_seconds",
			Help:      "Statement execution latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowsql",
			Name:      "transactions_committed_total",
			Help:      "Transactions resolved by commit.",
		}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowsql",
			Name:      "transactions_rolled_back_total",
			Help:      "Transactions resolved by rollback.",
		}),
	}
	reg.MustRegister(m.executions, m.failures, m.duration, m.commits, m.rollbacks)
	return m
}

func (m *Metrics) observeExecution(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(op).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) observeTx(committed bool) {
	if m == nil {
		return
	}
	if committed {
		m.commits.Inc()
		return
	}
	m.rollbacks.Inc()
}

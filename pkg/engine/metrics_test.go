package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsObserveExecution(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observeExecution("query", time.Now(), nil)
	m.observeExecution("query", time.Now(), errors.New("boom"))
	m.observeExecution("update", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.executions.WithLabelValues("query")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("update")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("query")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.failures.WithLabelValues("update")))
}

func TestMetricsObserveTx(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.observeTx(true)
	m.observeTx(true)
	m.observeTx(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rollbacks))
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeExecution("query", time.Now(), errors.New("boom"))
		m.observeTx(true)
		m.observeTx(false)
	})
}

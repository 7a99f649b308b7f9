package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)
	var total float64
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		if pb.Counter != nil {
			total += pb.Counter.GetValue()
		}
	}
	return total
}

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCountErrorIncrementsByKind(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.CountError("validation")
	m.CountError("validation")
	m.CountError("timeout")

	assert.Equal(t, 2.0, counterValue(t, m.QueryErrors.WithLabelValues("validation")))
	assert.Equal(t, 1.0, counterValue(t, m.QueryErrors.WithLabelValues("timeout")))
}

func TestCountOperatorIncrements(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.CountOperator("knn")
	m.CountOperator("knn")
	m.CountOperator("bfs")

	assert.Equal(t, 2.0, counterValue(t, m.OperatorCalls.WithLabelValues("knn")))
	assert.Equal(t, 1.0, counterValue(t, m.OperatorCalls.WithLabelValues("bfs")))
}

func TestObserveQueryAndRowsDoNotPanic(t *testing.T) {
	m := New(prometheus.NewRegistry())
	assert.NotPanics(t, func() {
		m.ObserveQuery("ok", 0.012)
		m.ObserveRows("ivg.vector.search", 10)
	})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestProfilerMetrics(t *testing.T) {
	t.Run("Counts events by label", func(t *testing.T) {
		m, err := NewProfilerMetrics(prometheus.NewRegistry())
		require.Nil(t, err)

		m.RequestSeen()
		m.RequestSeen()
		m.Persisted("final")
		m.Dropped("not_found")
		m.Dropped("not_found")
		m.Flushed(3)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistedTotal.WithLabelValues("final")))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.DroppedEventsTotal.WithLabelValues("not_found")))
		assert.Equal(t, 3.0, testutil.ToFloat64(m.FlushedTotal))
	})

	t.Run("Registering twice on the same registry fails", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		_, err := NewProfilerMetrics(registry)
		require.Nil(t, err)
		_, err = NewProfilerMetrics(registry)
		assert.NotNil(t, err)
	})

	t.Run("Nil metrics record nothing", func(t *testing.T) {
		var m *ProfilerMetrics
		assert.NotPanics(t, func() {
			m.RequestSeen()
			m.Dropped("filtered")
			m.Flushed(1)
		})
	})
}

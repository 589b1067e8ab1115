package metrics

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lantern"

// ProfilerMetrics counts what the profiling engine does. A nil *ProfilerMetrics is valid and
// records nothing, so the engine can run without a registry.
type ProfilerMetrics struct {
	RequestsTotal      prometheus.Counter
	CapturedTotal      prometheus.Counter
	FinalizedTotal     prometheus.Counter
	PersistedTotal     *prometheus.CounterVec
	StorageErrorsTotal prometheus.Counter
	FlushedTotal       prometheus.Counter
	DroppedEventsTotal *prometheus.CounterVec
}

func NewProfilerMetrics(registerer prometheus.Registerer) (*ProfilerMetrics, error) {
	m := &ProfilerMetrics{
		RequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests seen by the profiler",
		}),
		CapturedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captured_requests_total",
			Help:      "Requests for which a profile was opened",
		}),
		FinalizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalized_profiles_total",
			Help:      "Profiles made immutable",
		}),
		PersistedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persisted_snapshots_total",
			Help:      "Profile snapshots handed to storage",
		}, []string{"stage"}),
		StorageErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed attempts to write profiles to storage",
		}),
		FlushedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_documents_total",
			Help:      "Profile documents written to storage by the write buffer",
		}),
		DroppedEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_events_total",
			Help:      "Lifecycle events and snapshots dropped without reaching a profile or storage",
		}, []string{"reason"}),
	}

	collectors := []prometheus.Collector{
		m.RequestsTotal,
		m.CapturedTotal,
		m.FinalizedTotal,
		m.PersistedTotal,
		m.StorageErrorsTotal,
		m.FlushedTotal,
		m.DroppedEventsTotal,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register profiler metric: %w", err)
		}
	}
	return m, nil
}

func (m *ProfilerMetrics) RequestSeen() {
	if m == nil {
		return
	}
	m.RequestsTotal.Inc()
}

func (m *ProfilerMetrics) Captured() {
	if m == nil {
		return
	}
	m.CapturedTotal.Inc()
}

func (m *ProfilerMetrics) Finalized() {
	if m == nil {
		return
	}
	m.FinalizedTotal.Inc()
}

func (m *ProfilerMetrics) Persisted(stage string) {
	if m == nil {
		return
	}
	m.PersistedTotal.WithLabelValues(stage).Inc()
}

func (m *ProfilerMetrics) StorageError() {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.Inc()
}

func (m *ProfilerMetrics) Flushed(count int) {
	if m == nil {
		return
	}
	m.FlushedTotal.Add(float64(count))
}

func (m *ProfilerMetrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.DroppedEventsTotal.WithLabelValues(reason).Inc()
}

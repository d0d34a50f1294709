// Package metrics provides a Sink decorator that records preference flushes
// as Prometheus metrics before forwarding them.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// SinkMetrics counts the flushes passing through an instrumented sink.
type SinkMetrics struct {
	mu sync.Mutex

	flushesTotal *prometheus.CounterVec
	explicit     *prometheus.GaugeVec
	reloadsTotal prometheus.Counter
	loadErrors   prometheus.Counter

	registerer prometheus.Registerer
	registered bool
}

// newPrefsCounterVec creates a counter vec in the runtimeprefs/sink namespace.
func newPrefsCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "runtimeprefs",
			Subsystem: "sink",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newPrefsCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runtimeprefs",
		Subsystem: "sink",
		Name:      name,
		Help:      help,
	})
}

// NewSinkMetrics creates a collector set. A nil registerer selects the
// Prometheus default registerer.
func NewSinkMetrics(registerer prometheus.Registerer) *SinkMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SinkMetrics{
		registerer:   registerer,
		flushesTotal: newPrefsCounterVec("flushes_total", "Total number of preference values flushed to the sink", []string{"name", "explicit"}),
		explicit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "runtimeprefs",
			Subsystem: "sink",
			Name:      "explicit",
			Help:      "Whether the last flushed value of a preference was explicitly set (1) or defaulted (0)",
		}, []string{"name"}),
		reloadsTotal: newPrefsCounter("reloads_total", "Total number of settings reloads"),
		loadErrors:   newPrefsCounter("load_errors_total", "Total number of settings loads that failed"),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *SinkMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		m.flushesTotal,
		m.explicit,
		m.reloadsTotal,
		m.loadErrors,
	}

	for _, c := range collectors {
		if err := m.registerer.Register(c); err != nil {
			// Already registered is not an error
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// RecordFlush records one flushed value.
func (m *SinkMetrics) RecordFlush(name string, explicit bool) {
	m.flushesTotal.WithLabelValues(name, strconv.FormatBool(explicit)).Inc()
	if explicit {
		m.explicit.WithLabelValues(name).Set(1)
	} else {
		m.explicit.WithLabelValues(name).Set(0)
	}
}

// RecordReload records a successful settings reload.
func (m *SinkMetrics) RecordReload() {
	m.reloadsTotal.Inc()
}

// RecordLoadError records a settings load that failed.
func (m *SinkMetrics) RecordLoadError() {
	m.loadErrors.Inc()
}

// Reset drops every per-preference series (flush counts and explicit
// gauges). The reload and load-error counters are cumulative and are kept.
func (m *SinkMetrics) Reset() {
	m.flushesTotal.Reset()
	m.explicit.Reset()
}

// InstrumentedSink records every flush and forwards it to the next sink.
type InstrumentedSink struct {
	next    value.Sink
	metrics *SinkMetrics
}

// NewInstrumentedSink wraps next. A nil next only records.
func NewInstrumentedSink(next value.Sink, m *SinkMetrics) *InstrumentedSink {
	return &InstrumentedSink{next: next, metrics: m}
}

// Notify implements value.Sink.
func (s *InstrumentedSink) Notify(name string, v value.Value, explicit bool) {
	s.metrics.RecordFlush(name, explicit)
	if s.next != nil {
		s.next.Notify(name, v, explicit)
	}
}

// Metrics returns the collector set the sink records into.
func (s *InstrumentedSink) Metrics() *SinkMetrics {
	return s.metrics
}

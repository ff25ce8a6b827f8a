package telemetry

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics implements Metrics on top of github.com/prometheus/client_golang.
// Counters/histograms/gauges are created lazily per metric name and cached,
// mirroring the promauto style used across the corpus's routing prefilter.
type PromMetrics struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewPromMetrics builds a Metrics recorder registered against reg. If reg is
// nil, prometheus.NewRegistry() is used so metrics never collide with the
// global default registry across multiple instances in tests.
func NewPromMetrics(reg *prometheus.Registry) *PromMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PromMetrics{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// Registry returns the underlying Prometheus registry for wiring into an HTTP
// exposition handler.
func (m *PromMetrics) Registry() *prometheus.Registry { return m.reg }

func tagLabels(tags []string) (labels []string, values prometheus.Labels) {
	values = prometheus.Labels{}
	for i := 0; i+1 < len(tags); i += 2 {
		labels = append(labels, tags[i])
		values[tags[i]] = tags[i+1]
	}
	return labels, values
}

func (m *PromMetrics) IncCounter(name string, value float64, tags ...string) {
	labels, values := tagLabels(tags)
	m.mu.Lock()
	c, ok := m.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: sanitizeMetricName(name),
			Help: name,
		}, labels)
		m.reg.MustRegister(c)
		m.counters[name] = c
	}
	m.mu.Unlock()
	c.With(values).Add(value)
}

func (m *PromMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	labels, values := tagLabels(tags)
	m.mu.Lock()
	h, ok := m.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    sanitizeMetricName(name),
			Help:    name,
			Buckets: prometheus.DefBuckets,
		}, labels)
		m.reg.MustRegister(h)
		m.histograms[name] = h
	}
	m.mu.Unlock()
	h.With(values).Observe(duration.Seconds())
}

func (m *PromMetrics) RecordGauge(name string, value float64, tags ...string) {
	labels, values := tagLabels(tags)
	m.mu.Lock()
	g, ok := m.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: sanitizeMetricName(name),
			Help: name,
		}, labels)
		m.reg.MustRegister(g)
		m.gauges[name] = g
	}
	m.mu.Unlock()
	g.With(values).Set(value)
}

func sanitizeMetricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}

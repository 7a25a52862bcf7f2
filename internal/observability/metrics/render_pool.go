package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RenderPoolMetrics tracks saturation of the bounded render pool.
type RenderPoolMetrics struct {
	inFlight  prometheus.Gauge
	waiting   prometheus.Gauge
	queueWait prometheus.Histogram
	abandoned *prometheus.CounterVec
	scratch   prometheus.Gauge
}

var (
	renderPoolOnce    sync.Once
	renderPoolMetrics *RenderPoolMetrics
)

// RenderPoolWithConfig returns the singleton render pool registry using config labels.
func RenderPoolWithConfig(cfg Config) *RenderPoolMetrics {
	renderPoolOnce.Do(func() {
		renderPoolMetrics = newRenderPoolMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return renderPoolMetrics
}

// NewRenderPoolMetricsForTest builds an instance on its own registry.
func NewRenderPoolMetricsForTest(registerer prometheus.Registerer) *RenderPoolMetrics {
	return newRenderPoolMetrics(registerer, Config{ServiceName: "laudo", Environment: "test"})
}

func newRenderPoolMetrics(registerer prometheus.Registerer, cfg Config) *RenderPoolMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "laudo"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &RenderPoolMetrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "laudo_render_pool_in_flight",
			Help:        "Renders currently holding a browser session.",
			ConstLabels: constLabels,
		}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "laudo_render_pool_waiting",
			Help:        "Renders queued for a free slot.",
			ConstLabels: constLabels,
		}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "laudo_render_pool_queue_wait_seconds",
			Help:        "Time spent waiting for a render slot.",
			Buckets:     []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}),
		abandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "laudo_render_pool_abandoned_total",
			Help:        "Queued renders whose context ended before a slot freed up.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		scratch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "laudo_render_scratch_pending",
			Help:        "Scratch HTML files awaiting removal.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(m.inFlight, m.waiting, m.queueWait, m.abandoned, m.scratch)
	return m
}

func (m *RenderPoolMetrics) Waiting(delta float64) {
	if m == nil {
		return
	}
	m.waiting.Add(delta)
}

func (m *RenderPoolMetrics) Acquired(wait time.Duration) {
	if m == nil {
		return
	}
	m.queueWait.Observe(wait.Seconds())
	m.inFlight.Inc()
}

func (m *RenderPoolMetrics) Released() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *RenderPoolMetrics) Abandoned(reason string) {
	if m == nil {
		return
	}
	m.abandoned.WithLabelValues(reason).Inc()
}

func (m *RenderPoolMetrics) ScratchPending(delta float64) {
	if m == nil {
		return
	}
	m.scratch.Add(delta)
}

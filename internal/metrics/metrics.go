// Package metrics exposes tracer and emission activity as Prometheus
// metrics on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements emission.Recorder and tracer.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	blocksEmitted    prometheus.Counter
	blocksSuppressed prometheus.Counter
	sinkErrors       prometheus.Counter
	historySize      prometheus.Gauge
	targetsAttached  prometheus.Gauge
	targetsResolved  *prometheus.CounterVec
}

// New registers the gmt_* collectors, plus the Go runtime and process
// collectors when runtime is set.
func New(runtime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		blocksEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gmt_blocks_emitted_total",
			Help: "Trace blocks handed to the sink.",
		}),
		blocksSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gmt_blocks_suppressed_total",
			Help: "Trace blocks dropped because an identical block was already emitted.",
		}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gmt_sink_errors_total",
			Help: "Trace blocks the sink failed to accept.",
		}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gmt_history_size",
			Help: "Distinct block fingerprints recorded.",
		}),
		targetsAttached: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gmt_targets_attached",
			Help: "Methods with trace hooks installed.",
		}),
		targetsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gmt_targets_resolved_total",
			Help: "Methods appended to the target list, by selection root.",
		}, []string{"root"}),
	}
	m.registry.MustRegister(
		m.blocksEmitted,
		m.blocksSuppressed,
		m.sinkErrors,
		m.historySize,
		m.targetsAttached,
		m.targetsResolved,
	)
	if runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

func (m *Metrics) BlockEmitted()     { m.blocksEmitted.Inc() }
func (m *Metrics) BlockSuppressed()  { m.blocksSuppressed.Inc() }
func (m *Metrics) SinkFailed()       { m.sinkErrors.Inc() }
func (m *Metrics) HistorySize(n int) { m.historySize.Set(float64(n)) }

func (m *Metrics) TargetsResolved(root string, n int) {
	m.targetsResolved.WithLabelValues(root).Add(float64(n))
}

func (m *Metrics) TargetsAttached(n int) { m.targetsAttached.Set(float64(n)) }

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Package metrics provides Prometheus instrumentation for scrub runs.
//
// The scrub core observes blocks through the scrub.Recorder interface and
// stays free of any Prometheus dependency; this package supplies the
// Prometheus-backed implementation plus an HTTP handler the CLI can mount
// when metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeroblk/zeroblk/pkg/scrub"
)

// ScrubMetrics implements scrub.Recorder with Prometheus counters.
// All methods are safe for concurrent use.
type ScrubMetrics struct {
	registry *prometheus.Registry

	blocksScanned   *prometheus.CounterVec
	blocksRewritten prometheus.Counter
	bytesWritten    prometheus.Counter
}

var _ scrub.Recorder = (*ScrubMetrics)(nil)

// New creates scrub metrics backed by a fresh registry that also exposes
// the standard Go runtime and process collectors.
func New() *ScrubMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates scrub metrics registered on reg.
func NewWithRegistry(reg *prometheus.Registry) *ScrubMetrics {
	return &ScrubMetrics{
		registry: reg,
		blocksScanned: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "zeroblk_blocks_scanned_total",
				Help: "Total number of blocks classified, by decision",
			},
			[]string{"result"}, // "allocated", "clean", "rewrite"
		),
		blocksRewritten: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "zeroblk_blocks_rewritten_total",
				Help: "Total number of blocks rewritten with the fill pattern",
			},
		),
		bytesWritten: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "zeroblk_bytes_written_total",
				Help: "Total bytes written back to the device (counted in dry-run too)",
			},
		),
	}
}

// ObserveScan implements scrub.Recorder.
func (m *ScrubMetrics) ObserveScan(d scrub.Decision) {
	m.blocksScanned.WithLabelValues(d.String()).Inc()
}

// ObserveRewrite implements scrub.Recorder.
func (m *ScrubMetrics) ObserveRewrite(n int) {
	m.blocksRewritten.Inc()
	m.bytesWritten.Add(float64(n))
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *ScrubMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

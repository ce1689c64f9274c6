// Package metrics exposes srcmerge's counters through a private Prometheus
// registry. There is no HTTP listener: when an output file is configured
// the registry is written in the node-exporter textfile format after each
// merge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
)

const namespace = "srcmerge"

// Merge results used as label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// DefaultMergeBuckets covers sub-millisecond merges up to multi-second ones.
var DefaultMergeBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// Metrics holds the collectors for one merge service.
type Metrics struct {
	registry      *prometheus.Registry
	outputPath    string
	events        *prometheus.CounterVec
	merges        *prometheus.CounterVec
	readErrors    prometheus.Counter
	registryFiles prometheus.Gauge
	mergeDuration prometheus.Histogram
}

// New creates the collectors on a fresh registry. outputPath may be empty,
// in which case Flush is a no-op.
func New(outputPath string) *Metrics {
	m := &Metrics{
		registry:   prometheus.NewRegistry(),
		outputPath: outputPath,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Filesystem events handled, by kind.",
		}, []string{"kind"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_total",
			Help:      "Merge passes, by result.",
		}, []string{"result"}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Source files that could not be read.",
		}),
		registryFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_files",
			Help:      "Files currently held in the registry.",
		}),
		mergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_duration_seconds",
			Help:      "Time spent building and writing the merged output.",
			Buckets:   DefaultMergeBuckets,
		}),
	}

	m.registry.MustRegister(m.events, m.merges, m.readErrors, m.registryFiles, m.mergeDuration)
	return m
}

// Registry returns the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Event counts one handled filesystem event.
func (m *Metrics) Event(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

// ReadError counts one unreadable source file.
func (m *Metrics) ReadError() {
	m.readErrors.Inc()
}

// RegistrySize records the current registry size.
func (m *Metrics) RegistrySize(n int) {
	m.registryFiles.Set(float64(n))
}

// Merge records one merge pass.
func (m *Metrics) Merge(duration time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.merges.WithLabelValues(result).Inc()
	m.mergeDuration.Observe(duration.Seconds())
}

// Flush writes the registry to the configured textfile.
func (m *Metrics) Flush() error {
	if m.outputPath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.outputPath, m.registry); err != nil {
		return mergeerrors.Wrap(err, mergeerrors.ErrorTypeWrite, mergeerrors.ErrCodeMetricsWrite, "cannot write metrics file").
			WithPath(m.outputPath)
	}
	return nil
}

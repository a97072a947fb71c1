package kvfs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values for operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics exposes Prometheus metrics for a FileSystem. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	entries    *prometheus.GaugeVec
	bytes      prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with registry.
// If registry is nil, metrics are created but not registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kvfs",
				Name:      "operations_total",
				Help:      "Operations performed, by operation and result.",
			},
			[]string{"op", "result"},
		),
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "kvfs",
				Name:      "entries",
				Help:      "Entries currently stored, by kind. The root is not counted.",
			},
			[]string{"kind"},
		),
		bytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "kvfs",
				Name:      "content_bytes",
				Help:      "Total size of all file contents.",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(m.operations, m.entries, m.bytes)
	}
	return m
}

// observe counts one call of op.
func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(op, result).Inc()
}

// setUsage publishes the current store totals.
func (m *Metrics) setUsage(u Usage) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(string(KindFile)).Set(float64(u.Files))
	m.entries.WithLabelValues(string(KindDir)).Set(float64(u.Dirs))
	m.bytes.Set(float64(u.Bytes))
}

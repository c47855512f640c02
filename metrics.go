package octiron

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "octiron"

// Metrics tracks ingestion and inference.
type Metrics struct {
	filesIngested     *prometheus.CounterVec
	filesSkipped      *prometheus.CounterVec
	filesFailed       *prometheus.CounterVec
	quads             prometheus.Gauge
	inferenceDuration prometheus.Histogram
}

// NewMetrics creates the engine metrics and registers them with reg when
// it is not nil. Collectors already registered by another engine are
// reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		filesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_ingested_total",
			Help:      "Files parsed into the graph, by loader.",
		}, []string{"loader"}),
		filesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_skipped_total",
			Help:      "Files not parsed, by reason.",
		}, []string{"reason"}),
		filesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_failed_total",
			Help:      "Files that failed to parse, by loader.",
		}, []string{"loader"}),
		quads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "graph_quads",
			Help:      "Quads in the graph.",
		}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "inference_duration_seconds",
			Help:      "Duration of inference runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	if reg == nil {
		return m, nil
	}

	var errs []error
	m.filesIngested = register(reg, m.filesIngested, &errs)
	m.filesSkipped = register(reg, m.filesSkipped, &errs)
	m.filesFailed = register(reg, m.filesFailed, &errs)
	m.quads = register(reg, m.quads, &errs)
	m.inferenceDuration = register(reg, m.inferenceDuration, &errs)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return m, nil
}

// register registers c, returning the existing collector if an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errs *[]error) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	*errs = append(*errs, err)
	return c
}

// FilesIngested returns the ingested-files counter for a loader kind.
func (m *Metrics) FilesIngested(loader string) prometheus.Counter {
	return m.filesIngested.WithLabelValues(loader)
}

// FilesSkipped returns the skipped-files counter for a reason.
func (m *Metrics) FilesSkipped(reason string) prometheus.Counter {
	return m.filesSkipped.WithLabelValues(reason)
}

// FilesFailed returns the failed-files counter for a loader kind.
func (m *Metrics) FilesFailed(loader string) prometheus.Counter {
	return m.filesFailed.WithLabelValues(loader)
}

// Quads returns the graph size gauge.
func (m *Metrics) Quads() prometheus.Gauge {
	return m.quads
}

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds the metrics of one analysis run.
type Manager struct {
	namespace   string
	subsystem   string
	buckets     []float64
	constLabels prometheus.Labels
	registry    *prometheus.Registry

	eventsProcessed *prometheus.CounterVec
	sumWeights      *prometheus.GaugeVec
	chunksProcessed *prometheus.CounterVec
	chunksFailed    *prometheus.CounterVec
	regionSelected  *prometheus.CounterVec
	chunkLatency    *prometheus.HistogramVec
	workers         prometheus.Gauge
}

// NewManager returns a Manager registered on its own registry unless
// WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "hzz",
		subsystem: "signal",
		buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)

	m.eventsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_processed_total",
		Help:        "Number of events processed, per dataset.",
		ConstLabels: m.constLabels,
	}, []string{"dataset"})

	// generator weights may be negative
	m.sumWeights = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sum_weights",
		Help:        "Sum of the weights of processed events, per dataset.",
		ConstLabels: m.constLabels,
	}, []string{"dataset"})

	m.chunksProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "chunks_processed_total",
		Help:        "Number of chunks processed successfully, per dataset.",
		ConstLabels: m.constLabels,
	}, []string{"dataset"})

	m.chunksFailed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "chunks_failed_total",
		Help:        "Number of chunks that failed to read or process, per dataset.",
		ConstLabels: m.constLabels,
	}, []string{"dataset"})

	m.regionSelected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "region_selected_events_total",
		Help:        "Number of events selected by each region, per dataset.",
		ConstLabels: m.constLabels,
	}, []string{"dataset", "region"})

	m.chunkLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "chunk_duration_seconds",
		Help:        "Time spent reading and processing one chunk.",
		Buckets:     m.buckets,
		ConstLabels: m.constLabels,
	}, []string{"dataset"})

	m.workers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workers",
		Help:        "Number of concurrent chunk workers.",
		ConstLabels: m.constLabels,
	})
}

// Registry returns the registry holding the metrics.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// SetWorkers records the size of the worker pool.
func (m *Manager) SetWorkers(n int) { m.workers.Set(float64(n)) }

// ObserveChunk records a successfully processed chunk.
func (m *Manager) ObserveChunk(dataset string, events int64, sumw float64, d time.Duration) {
	m.eventsProcessed.WithLabelValues(dataset).Add(float64(events))
	m.chunksProcessed.WithLabelValues(dataset).Inc()
	m.chunkLatency.WithLabelValues(dataset).Observe(d.Seconds())
	m.sumWeights.WithLabelValues(dataset).Add(sumw)
}

// ObserveSelection records the number of events selected by a region.
func (m *Manager) ObserveSelection(dataset, region string, events int64) {
	m.regionSelected.WithLabelValues(dataset, region).Add(float64(events))
}

// ChunkFailed records a failed chunk.
func (m *Manager) ChunkFailed(dataset string) {
	m.chunksFailed.WithLabelValues(dataset).Inc()
}

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

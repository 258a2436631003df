// Package metrics exposes prometheus collectors for the index and the synchronizer.
//
// Components take an optional *Metrics: a nil *Metrics is valid and records nothing.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tokenfs"

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	defaultMetrics *Metrics
	initOnce       sync.Once
)

// Metrics groups all collectors
type Metrics struct {
	syncEvents   *prometheus.CounterVec
	syncDropped  *prometheus.CounterVec
	watchedDirs  *prometheus.GaugeVec
	indexOps     *prometheus.CounterVec
	indexRemoved prometheus.Counter
	blobLatency  *prometheus.HistogramVec
}

// New registers a fresh set of collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		syncEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "events_total",
			Help:      "Filesystem events mirrored into the index, by operation.",
		}, []string{"owner", "op"}),
		syncDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "events_dropped_total",
			Help:      "Filesystem events which could not be mirrored into the index.",
		}, []string{"owner", "op"}),
		watchedDirs: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "watched_directories",
			Help:      "Directories currently registered with the watcher.",
		}, []string{"owner"}),
		indexOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "operations_total",
			Help:      "Index operations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		indexRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "removed_nodes_total",
			Help:      "Nodes removed from the index, cascades included.",
		}),
		blobLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "blob",
			Name:      "operation_seconds",
			Help:      "Latency of blob store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// Default metrics, registered with the default prometheus registerer
func Default() *Metrics {
	initOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// SyncEvent counts a mirrored filesystem event
func (m *Metrics) SyncEvent(owner, op string) {
	if m == nil {
		return
	}
	m.syncEvents.WithLabelValues(owner, op).Inc()
}

// SyncDropped counts a filesystem event which was not mirrored
func (m *Metrics) SyncDropped(owner, op string) {
	if m == nil {
		return
	}
	m.syncDropped.WithLabelValues(owner, op).Inc()
}

// WatchedDirs sets the number of directories watched for an owner
func (m *Metrics) WatchedDirs(owner string, n int) {
	if m == nil {
		return
	}
	m.watchedDirs.WithLabelValues(owner).Set(float64(n))
}

// IndexOp counts an index operation
func (m *Metrics) IndexOp(op string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.indexOps.WithLabelValues(op, outcome).Inc()
}

// Removed counts nodes removed from the index
func (m *Metrics) Removed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.indexRemoved.Add(float64(n))
}

// BlobOp observes the latency of a blob store operation started at t0
func (m *Metrics) BlobOp(op string, t0 time.Time) {
	if m == nil {
		return
	}
	m.blobLatency.WithLabelValues(op).Observe(time.Since(t0).Seconds())
}

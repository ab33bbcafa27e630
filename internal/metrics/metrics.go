// Package metrics exports logstore and storage observations to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logstore"

// Metrics implements logstore.Observer and pebblestore.MetricsHook on a
// private registry.
type Metrics struct {
	registry *prometheus.Registry

	logsPut        *prometheus.CounterVec
	logsEvicted    *prometheus.CounterVec
	evictFailures  *prometheus.CounterVec
	logsDeleted    *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
	storageErrors  *prometheus.CounterVec
	outstanding    *prometheus.GaugeVec
	opLatency      *prometheus.HistogramVec
	shutdowns      *prometheus.CounterVec

	kvWrite  prometheus.Histogram
	kvRead   prometheus.Histogram
	kvCommit prometheus.Histogram
	kvBytes  *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logsPut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "logs_put_total",
			Help: "Logs persisted, by channel.",
		}, []string{"channel"}),
		logsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "logs_evicted_total",
			Help: "Logs deleted because their channel exceeded capacity.",
		}, []string{"channel"}),
		evictFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "eviction_failures_total",
			Help: "Logs left over capacity because their eviction delete failed.",
		}, []string{"channel"}),
		logsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "logs_deleted_total",
			Help: "Logs deleted after delivery or channel purge.",
		}, []string{"channel"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "decode_failures_total",
			Help: "Stored rows that could not be decoded and were purged.",
		}, []string{"channel"}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "storage_errors_total",
			Help: "Adapter failures by operation.",
		}, []string{"op"}),
		outstanding: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "outstanding_batches",
			Help: "Batches handed out and not yet acknowledged.",
		}, []string{"channel"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "operation_duration_seconds",
			Help:    "Time spent executing storage operations on the engine.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}, []string{"op", "result"}),
		shutdowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "shutdowns_total",
			Help: "Shutdowns by outcome.",
		}, []string{"outcome"}),
		kvWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "kv", Name: "write_duration_seconds",
			Help:    "Key/value write latency.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
		}),
		kvRead: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "kv", Name: "read_duration_seconds",
			Help:    "Key/value read latency.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
		}),
		kvCommit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "kv", Name: "batch_commit_duration_seconds",
			Help:    "Key/value batch commit latency.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
		}),
		kvBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "kv", Name: "bytes_total",
			Help: "Bytes moved through the key/value store by direction.",
		}, []string{"direction"}),
	}
	m.registry.MustRegister(
		m.logsPut, m.logsEvicted, m.evictFailures, m.logsDeleted, m.decodeFailures, m.storageErrors,
		m.outstanding, m.opLatency, m.shutdowns, m.kvWrite, m.kvRead, m.kvCommit, m.kvBytes,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RegisterPendingGauge exposes fn as the number of admitted, unfinished
// storage operations.
func (m *Metrics) RegisterPendingGauge(fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: "engine_pending_tasks",
		Help: "Operations admitted to the engine and not yet finished.",
	}, func() float64 { return float64(fn()) }))
}

func (m *Metrics) LogPut(channel string) { m.logsPut.WithLabelValues(channel).Inc() }

func (m *Metrics) LogsEvicted(channel string, n int) {
	m.logsEvicted.WithLabelValues(channel).Add(float64(n))
}

func (m *Metrics) EvictionFailed(channel string, n int) {
	m.evictFailures.WithLabelValues(channel).Add(float64(n))
}

func (m *Metrics) LogsDeleted(channel string, n int) {
	m.logsDeleted.WithLabelValues(channel).Add(float64(n))
}

func (m *Metrics) DecodeFailed(channel string) { m.decodeFailures.WithLabelValues(channel).Inc() }

func (m *Metrics) StorageFailed(op string) { m.storageErrors.WithLabelValues(op).Inc() }

func (m *Metrics) BatchesOutstanding(channel string, n int) {
	m.outstanding.WithLabelValues(channel).Set(float64(n))
}

func (m *Metrics) OperationDone(op string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.opLatency.WithLabelValues(op, result).Observe(elapsed.Seconds())
}

func (m *Metrics) ShutdownDone(drained bool) {
	outcome := "drained"
	if !drained {
		outcome = "timeout"
	}
	m.shutdowns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWrite(elapsed time.Duration, bytes int) {
	m.kvWrite.Observe(elapsed.Seconds())
	m.kvBytes.WithLabelValues("write").Add(float64(bytes))
}

func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.kvRead.Observe(elapsed.Seconds())
	m.kvBytes.WithLabelValues("read").Add(float64(bytes))
}

func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	m.kvCommit.Observe(elapsed.Seconds())
}

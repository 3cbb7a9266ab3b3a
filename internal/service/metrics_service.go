package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/correction-api/internal/models"
)

// File outcomes recorded by the correction pipeline.
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeRejected     = "rejected"
	OutcomeCollaborator = "collaborator_failed"
	OutcomePersistence  = "persistence_failed"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	filesTotal          *prometheus.CounterVec
	collaboratorLatency *prometheus.HistogramVec
	commitLatency       prometheus.Observer
	filesInFlight       prometheus.Gauge

	queueMu       sync.RWMutex
	queuePending  func() int
	queueInFlight func() int

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	filesSucceeded       uint64
	filesFailed          uint64
	inFlight             int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of document store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	filesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "correction_files_total",
		Help: "Files settled by the correction pipeline",
	}, []string{"outcome"})

	collaboratorLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "correction_collaborator_seconds",
		Help:    "Duration of AI correction calls",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
	}, []string{"result"})

	commitLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "correction_commit_seconds",
		Help:    "Duration of the serialized read-merge-write commit, lock wait included",
		Buckets: prometheus.DefBuckets,
	})

	filesInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "correction_files_in_flight",
		Help: "Files currently being processed",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	m := &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		dbQueryDuration:     dbQueryDuration,
		filesTotal:          filesTotal,
		collaboratorLatency: collaboratorLatency,
		commitLatency:       commitLatency,
		filesInFlight:       filesInFlight,
	}

	queuePending := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "correction_queue_pending",
		Help: "Files waiting for a correction worker",
	}, func() float64 {
		pending, _ := m.queueDepth()
		return float64(pending)
	})

	queueInFlight := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "correction_queue_in_flight",
		Help: "Correction jobs currently held by a worker",
	}, func() float64 {
		_, inFlight := m.queueDepth()
		return float64(inFlight)
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		dbQueryDuration, filesTotal, collaboratorLatency, commitLatency, filesInFlight, goroutines,
		queuePending, queueInFlight)

	return m
}

// TrackQueue reports the depth of a worker queue through the queue gauges and snapshots.
func (m *MetricsService) TrackQueue(pending, inFlight func() int) {
	if m == nil {
		return
	}
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	m.queuePending = pending
	m.queueInFlight = inFlight
}

func (m *MetricsService) queueDepth() (pending, inFlight int) {
	m.queueMu.RLock()
	defer m.queueMu.RUnlock()
	if m.queuePending != nil {
		pending = m.queuePending()
	}
	if m.queueInFlight != nil {
		inFlight = m.queueInFlight()
	}
	return pending, inFlight
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records document store timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// FileStarted marks a pipeline file as in flight.
func (m *MetricsService) FileStarted() {
	if m == nil {
		return
	}
	m.filesInFlight.Inc()
	atomic.AddInt64(&m.inFlight, 1)
}

// FileSettled records the outcome of a pipeline file and clears its in-flight mark.
func (m *MetricsService) FileSettled(outcome string) {
	if m == nil {
		return
	}
	m.filesInFlight.Dec()
	atomic.AddInt64(&m.inFlight, -1)
	m.filesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSucceeded {
		atomic.AddUint64(&m.filesSucceeded, 1)
	} else {
		atomic.AddUint64(&m.filesFailed, 1)
	}
}

// ObserveCollaborator records the duration of one AI call.
func (m *MetricsService) ObserveCollaborator(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.collaboratorLatency.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveCommit records the duration of one read-merge-write commit.
func (m *MetricsService) ObserveCommit(duration time.Duration) {
	if m == nil {
		return
	}
	m.commitLatency.Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	queuePending, queueInFlight := m.queueDepth()

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		FilesSucceeded:           atomic.LoadUint64(&m.filesSucceeded),
		FilesFailed:              atomic.LoadUint64(&m.filesFailed),
		FilesInFlight:            atomic.LoadInt64(&m.inFlight),
		QueuePending:             queuePending,
		QueueInFlight:            queueInFlight,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

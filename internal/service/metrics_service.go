package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the dispatch engine.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	assignmentTotal  *prometheus.CounterVec
	scoringDuration  prometheus.Observer
	scoredCandidates prometheus.Observer
	slotSearchDays   prometheus.Observer
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter

	requestCount    uint64
	assignedCount   uint64
	unassignedCount uint64
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

	assignmentTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_assignments_total",
		Help: "Auto-assignment outcomes by result",
	}, []string{"outcome"})

	scoringDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_scoring_duration_seconds",
		Help:    "Duration of technician scoring passes",
		Buckets: prometheus.DefBuckets,
	})

	scoredCandidates := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_scored_candidates",
		Help:    "Technician candidates evaluated per scoring pass",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})

	slotSearchDays := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_slot_search_days",
		Help:    "Days scanned per slot search",
		Buckets: []float64{1, 3, 7, 14, 30, 60},
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_distance_cache_hits_total",
		Help: "Total distance cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_distance_cache_misses_total",
		Help: "Total distance cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, assignmentTotal, scoringDuration, scoredCandidates, slotSearchDays, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		assignmentTotal:  assignmentTotal,
		scoringDuration:  scoringDuration,
		scoredCandidates: scoredCandidates,
		slotSearchDays:   slotSearchDays,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
	}
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// ObserveAssignment counts one auto-assignment outcome.
func (m *MetricsService) ObserveAssignment(outcome string) {
	if m == nil {
		return
	}
	m.assignmentTotal.WithLabelValues(outcome).Inc()
	if outcome == "assigned" {
		atomic.AddUint64(&m.assignedCount, 1)
	} else {
		atomic.AddUint64(&m.unassignedCount, 1)
	}
}

// ObserveScoring records one scoring pass.
func (m *MetricsService) ObserveScoring(duration time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.scoringDuration.Observe(duration.Seconds())
	m.scoredCandidates.Observe(float64(candidates))
}

// ObserveSlotSearch records the span of one slot search.
func (m *MetricsService) ObserveSlotSearch(daysScanned int) {
	if m == nil {
		return
	}
	m.slotSearchDays.Observe(float64(daysScanned))
}

// RecordCacheOperation counts a distance cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// DispatchSnapshot reports aggregate assignment counts since startup.
type DispatchSnapshot struct {
	Requests   uint64 `json:"requests"`
	Assigned   uint64 `json:"assigned"`
	Unassigned uint64 `json:"unassigned"`
}

// Snapshot returns aggregated counters suitable for the ops endpoint.
func (m *MetricsService) Snapshot() DispatchSnapshot {
	if m == nil {
		return DispatchSnapshot{}
	}
	return DispatchSnapshot{
		Requests:   atomic.LoadUint64(&m.requestCount),
		Assigned:   atomic.LoadUint64(&m.assignedCount),
		Unassigned: atomic.LoadUint64(&m.unassignedCount),
	}
}

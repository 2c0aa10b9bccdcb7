package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the gate API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	reservations    *prometheus.CounterVec
	capacityDenied  prometheus.Counter
	slotsGenerated  prometheus.Counter
	expirySweeps    prometheus.Counter
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_hits_total",
		Help: "Total availability cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "availability_cache_misses_total",
		Help: "Total availability cache misses",
	})

	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_total",
		Help: "Reservation lifecycle transitions",
	}, []string{"outcome"})

	capacityDenied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_capacity_denied_total",
		Help: "Reservations rejected because slot capacity was exhausted",
	})

	slotsGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "time_slots_generated_total",
		Help: "Time slot rows materialized by generation",
	})

	expirySweeps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_expiry_sweeps_total",
		Help: "Completed expiry sweep runs",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, reservations, capacityDenied, slotsGenerated, expirySweeps, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		reservations:    reservations,
		capacityDenied:  capacityDenied,
		slotsGenerated:  slotsGenerated,
		expirySweeps:    expirySweeps,
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
}

// RecordCacheLookup records an availability cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordReservation counts a lifecycle transition: created, cancelled,
// completed or expired.
func (m *MetricsService) RecordReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

// RecordCapacityDenied counts a booking rejected for exhausted capacity.
func (m *MetricsService) RecordCapacityDenied() {
	if m == nil {
		return
	}
	m.capacityDenied.Inc()
}

// RecordSlotsGenerated counts slot rows materialized for a date.
func (m *MetricsService) RecordSlotsGenerated(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.slotsGenerated.Add(float64(count))
}

// RecordExpirySweep counts one completed sweep run.
func (m *MetricsService) RecordExpirySweep() {
	if m == nil {
		return
	}
	m.expirySweeps.Inc()
}

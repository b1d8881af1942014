// Package metrics exposes scheduler instrumentation as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scheduler"

// Collector owns a private registry with the operation, slot cache and HTTP
// collectors. It satisfies application.Observer.
type Collector struct {
	registry          *prometheus.Registry
	handler           http.Handler
	operationDuration *prometheus.HistogramVec
	operationTotal    *prometheus.CounterVec
	slotCacheLookups  *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	operationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of scheduling operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	operationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Scheduling operations by outcome",
	}, []string{"operation", "outcome"})

	slotCacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "slot_cache_lookups_total",
		Help:      "Slot snapshot cache lookups by result",
	}, []string{"result"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	registry.MustRegister(
		operationDuration, operationTotal, slotCacheLookups, requestDuration, requestTotal,
		collectors.NewGoCollector(),
	)

	return &Collector{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		operationDuration: operationDuration,
		operationTotal:    operationTotal,
		slotCacheLookups:  slotCacheLookups,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOperation records one application operation.
func (c *Collector) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	c.operationTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveSlotCache records a slot snapshot cache lookup.
func (c *Collector) ObserveSlotCache(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.slotCacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func (c *Collector) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	label := strconv.Itoa(status)
	c.requestDuration.WithLabelValues(method, path, label).Observe(elapsed.Seconds())
	c.requestTotal.WithLabelValues(method, path, label).Inc()
}

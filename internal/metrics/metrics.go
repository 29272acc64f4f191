// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewaste_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ewaste_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// WorkflowTransitions counts committed status changes. from is "none"
	// for the creation entry.
	WorkflowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewaste_workflow_transitions_total",
		Help: "Committed request status transitions.",
	}, []string{"from", "to"})

	WorkflowFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewaste_workflow_failures_total",
		Help: "Failed workflow operations by operation and error kind.",
	}, []string{"operation", "kind"})

	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewaste_cache_results_total",
		Help: "Read cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ewaste_history_exports_total",
		Help: "History snapshot uploads by result.",
	}, []string{"result"})

	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ewaste_db_active_connections",
		Help: "Database connections currently in use.",
	})

	IdleConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ewaste_db_idle_connections",
		Help: "Idle database connections in the pool.",
	})

	CPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ewaste_host_cpu_percent",
		Help: "Host CPU utilisation.",
	})

	MemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ewaste_host_memory_percent",
		Help: "Host memory utilisation.",
	})

	DiskPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ewaste_host_disk_percent",
		Help: "Root filesystem utilisation.",
	})
)

package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersAdjustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_adjusted_total",
		Help: "Total number of order quantity adjustments",
	}, []string{"action"})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Total number of orders deleted",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order mutations",
	}, []string{"op", "reason"})

	CustomersRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "customers_registered_total",
		Help: "Total number of registered customers",
	})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"result"})

	CatalogLookupLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_lookup_latency_seconds",
		Help:    "Latency of building the price catalog from the produce table",
		Buckets: prometheus.DefBuckets,
	})

	StoreRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_request_duration_seconds",
		Help:    "Latency of remote grid operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	StoreErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "store_errors_total",
		Help: "Total number of failed remote grid operations",
	}, []string{"op"})

	SchemaReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schema_reconciliations_total",
		Help: "Total number of header rows rewritten to match the declared schema",
	}, []string{"table"})

	StaleRowConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stale_row_conflicts_total",
		Help: "Total number of positional writes aborted because the target row changed",
	}, []string{"table"})

	TableLockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "table_lock_wait_seconds",
		Help:    "Time spent waiting for a table write lock",
		Buckets: prometheus.DefBuckets,
	}, []string{"table"})

	AuditEventsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_written_total",
		Help: "Total number of order events appended to the audit table",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

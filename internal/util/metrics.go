package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Total number of reservations created",
	})

	ReservationsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_confirmed_total",
		Help: "Total number of reservations confirmed into permanent decrements",
	})

	ReservationsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_cancelled_total",
		Help: "Total number of reservations cancelled explicitly",
	})

	ReservationsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_expired_total",
		Help: "Total number of reservations released by the expiration sweeper",
	})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_failed_total",
		Help: "Total number of failed reservation creations",
	}, []string{"reason"})

	InsufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insufficient_stock_total",
		Help: "Total number of reserve attempts rejected for insufficient stock",
	})

	StockReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_reserve_latency_seconds",
		Help:    "Latency of the conditional stock reserve operation",
		Buckets: prometheus.DefBuckets,
	})

	SweeperRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweeper_runs_total",
		Help: "Total number of expiration sweeper passes",
	})

	SweeperDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweeper_duration_seconds",
		Help:    "Duration of one expiration sweeper pass",
		Buckets: prometheus.DefBuckets,
	})

	RollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_rollbacks_total",
		Help: "Total number of completed order stock rollbacks",
	})

	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refunds_requested_total",
		Help: "Total number of refund requests issued",
	})

	CompensationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compensation_failures_total",
		Help: "Total number of failed compensation steps",
	}, []string{"step"})

	AlertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_alerts_created_total",
		Help: "Total number of inventory alerts created",
	}, []string{"type"})

	ChangeWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_change_write_failures_total",
		Help: "Total number of audit ledger rows that failed to persist",
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

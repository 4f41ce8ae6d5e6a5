// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "stocktrack"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	MovementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_movements_total",
			Help: "Total number of committed stock movements",
		},
		[]string{"kind"},
	)

	InsufficientStockTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_insufficient_stock_total",
			Help: "Total number of sales rejected for insufficient stock",
		},
	)

	TitlesSettledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_titles_settled_total",
			Help: "Total number of titles settled",
		},
	)

	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_report_duration_seconds",
			Help:    "Duration of analytics report computations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report"},
	)

	StockOnHand = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_stock_on_hand",
			Help: "Current stock level per product",
		},
		[]string{"product_id"},
	)
)

// TrackReport records the duration of one analytics computation.
func TrackReport(report string) func(start time.Time) {
	return func(start time.Time) {
		ReportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
	}
}

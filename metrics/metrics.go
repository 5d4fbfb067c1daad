package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Order metrics
	OrdersCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders committed",
		},
		[]string{"customer"}, // guest, registered
	)

	OrderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_failures_total",
			Help:      "Total number of rejected or failed order placements",
		},
		[]string{"reason"},
	)

	OrderReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_idempotent_replays_total",
			Help:      "Total number of order submissions answered from an earlier idempotency key",
		},
	)

	// Discount metrics
	DiscountValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_validations_total",
			Help:      "Total number of discount validations by outcome",
		},
		[]string{"result"},
	)

	// Inventory metrics
	StockUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_stock_updates_total",
			Help:      "Total number of product stock changes by resulting stock level",
		},
		[]string{"level"},
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of receipt notifications by outcome",
		},
		[]string{"result"},
	)

	// Database operation metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Middleware records request counts and latencies per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordOrderCreated counts a committed order
func RecordOrderCreated(guest bool) {
	label := "registered"
	if guest {
		label = "guest"
	}
	OrdersCreatedTotal.WithLabelValues(label).Inc()
}

// RecordOrderFailure counts a rejected or failed order placement
func RecordOrderFailure(reason string) {
	OrderFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordDiscountValidation counts a discount validation outcome
func RecordDiscountValidation(result string) {
	DiscountValidationsTotal.WithLabelValues(result).Inc()
}

// LowStockThreshold is the highest quantity still counted as low stock
const LowStockThreshold = 3

// StockLevel buckets a quantity into sold_out, low or in_stock
func StockLevel(stock int) string {
	switch {
	case stock <= 0:
		return "sold_out"
	case stock <= LowStockThreshold:
		return "low"
	default:
		return "in_stock"
	}
}

// RecordStockUpdate counts a stock change by its resulting level.
// Product ids are kept out of the labels so the series count stays fixed.
func RecordStockUpdate(stock int) {
	StockUpdatesTotal.WithLabelValues(StockLevel(stock)).Inc()
}

// RecordNotification counts a receipt notification outcome
func RecordNotification(result string) {
	NotificationsTotal.WithLabelValues(result).Inc()
}

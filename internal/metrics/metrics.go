// Package metrics provides Prometheus instrumentation for the settlement engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ListingsCreated counts listings created, partitioned by collection.
	ListingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftmx_listings_created_total",
		Help: "Total number of listings created",
	}, []string{"collection"})

	// ListingsCanceled counts listings canceled.
	ListingsCanceled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftmx_listings_canceled_total",
		Help: "Total number of listings canceled",
	}, []string{"collection"})

	// ActiveListings tracks the number of currently active listings.
	ActiveListings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftmx_active_listings",
		Help: "Number of currently active listings",
	})

	// PurchasesTotal counts settled purchases, partitioned by collection.
	PurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftmx_purchases_total",
		Help: "Total number of settled purchases",
	}, []string{"collection"})

	// PurchaseVolume accumulates settled volume in settlement-token units.
	PurchaseVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftmx_purchase_volume_total",
		Help: "Cumulative settled volume in settlement-token smallest units",
	}, []string{"collection"})

	// SettlementFailures counts buy attempts that failed, by error kind.
	SettlementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftmx_settlement_failures_total",
		Help: "Buy attempts that failed, by error kind",
	}, []string{"kind"})

	// SettlementLatency tracks end-to-end buy execution latency.
	SettlementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nftmx_settlement_latency_seconds",
		Help:    "Buy execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// FeeUpdates counts administrative fee configuration changes.
	FeeUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nftmx_fee_updates_total",
		Help: "Administrative fee policy updates",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nftmx_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nftmx_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nftmx_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Package metrics holds the Prometheus collectors exported on /metrics.
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
	// HTTPRequestsTotal counts requests by method, route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scorer_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration records request latency by method and route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scorer_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// MatchValidationsTotal counts validation engine calls by action and result.
	MatchValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scorer_match_validations_total",
		Help: "Total number of match validation actions by result",
	}, []string{"action", "result"})

	// LeaderboardCacheTotal counts leaderboard cache lookups by result.
	LeaderboardCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scorer_leaderboard_cache_total",
		Help: "Leaderboard cache lookups by result",
	}, []string{"result"})

	// WebSocketConnections is the gauge of active notification sockets.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scorer_websocket_connections",
		Help: "Number of active WebSocket connections",
	})
)

// Validation results
const (
	ResultAccepted  = "accepted"
	ResultConfirmed = "confirmed"
	ResultRejected  = "rejected"
	ResultConflict  = "conflict"
)

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, start time.Time) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// RecordValidation increments the validation counter.
func RecordValidation(action, result string) {
	MatchValidationsTotal.WithLabelValues(action, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

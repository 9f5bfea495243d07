// Package metrics holds the Prometheus collectors shared by the executor
// and the HTTP server.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

var (
	// RewritesTotal counts rewrite attempts by mode (query, statement) and outcome.
	RewritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leapquery_rewrites_total",
			Help: "Total number of query rewrites",
		},
		[]string{"mode", "outcome"},
	)
	// DispatchTotal counts submissions to the engine by outcome.
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leapquery_dispatch_total",
			Help: "Total number of statements submitted to the engine",
		},
		[]string{"outcome"},
	)
	// DispatchDuration is the latency of the submission request.
	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leapquery_dispatch_duration_seconds",
			Help:    "Engine submission latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	// ParseLockWait is the time spent waiting for the parser lock.
	ParseLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leapquery_parse_lock_wait_seconds",
			Help:    "Time spent waiting for the parser lock in seconds",
			Buckets: []float64{.00001, .0001, .0005, .001, .005, .01, .05, .1},
		},
	)
	// RequestTotal counts HTTP API requests by route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leapquery_http_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP API requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leapquery_http_request_duration_seconds",
			Help:    "HTTP API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome labels an error for the outcome dimension.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		syntax    *core.SyntaxError
		schema    *core.UnknownSchemaError
		limit     *core.LimitExceededError
		transport *core.TransportError
		arg       *core.ArgumentError
	)
	switch {
	case errors.As(err, &syntax):
		return "syntax_error"
	case errors.As(err, &schema):
		return "unknown_schema"
	case errors.As(err, &limit):
		return "limit_exceeded"
	case errors.As(err, &transport):
		return "transport_error"
	case errors.As(err, &arg):
		return "invalid_argument"
	default:
		return "error"
	}
}

package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for SGS request and retry behavior.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgs_requests_total",
		Help: "Total SGS upstream requests by HTTP status (or network_error)",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sgs_request_duration_seconds",
		Help:    "SGS upstream request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgs_retries_total",
		Help: "Total retry attempts by failure reason",
	}, []string{"reason"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sgs_retry_backoff_seconds",
		Help:    "Backoff duration before retries by failure reason",
		Buckets: []float64{0.5, 1, 2, 5, 10},
	}, []string{"reason"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sgs_retry_exhausted_total",
		Help: "Total requests that exhausted the retry budget by failure reason",
	}, []string{"reason"})
)

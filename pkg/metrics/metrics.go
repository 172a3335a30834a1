// Package metrics provides the centralized Prometheus metrics registry
// for the SGS client. All metrics are defined in their respective
// packages (client, cache, series, ratelimit) to maintain modularity
// and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the SGS client.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - sgs_requests_total{status} (Counter): Upstream requests by HTTP status
//   - sgs_request_duration_seconds (Histogram): Upstream request duration
//
// Retry Metrics (pkg/client):
//   - sgs_retries_total{reason} (Counter): Retry attempts by reason (throttle, server_error, network)
//   - sgs_retry_backoff_seconds{reason} (Histogram): Backoff duration by reason
//   - sgs_retry_exhausted_total{reason} (Counter): Requests that exhausted all attempts
//
// Cache Metrics (pkg/cache):
//   - sgs_cache_hits_total (Counter): Cache hits
//   - sgs_cache_misses_total (Counter): Cache misses
//   - sgs_cache_errors_total{operation} (Counter): Cache backend errors by operation
//
// Pipeline Metrics (pkg/series):
//   - sgs_series_fetches_total{result} (Counter): Completed series fetches by result (ok, error)
//   - sgs_series_chunks_total{source} (Counter): Per-chunk outcomes (cache, upstream, error)
//
// Concurrency Metrics (pkg/ratelimit):
//   - sgs_gate_wait_seconds (Histogram): Time spent waiting for a request slot
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(sgs_cache_hits_total[5m])) /
//   (sum(rate(sgs_cache_hits_total[5m])) + sum(rate(sgs_cache_misses_total[5m])))
//
//   # Retry Rate by Reason
//   rate(sgs_retries_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(sgs_request_duration_seconds_bucket[5m]))
//
//   # Share of Chunks Served From Cache
//   sum(rate(sgs_series_chunks_total{source="cache"}[5m])) /
//   sum(rate(sgs_series_chunks_total[5m]))

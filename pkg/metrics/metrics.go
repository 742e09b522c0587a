// Package metrics exposes the Prometheus registry shared by every scholar-serp
// package. Metrics are defined with promauto where they are recorded (client,
// cache, ratelimit, pagination, scholar, mandates); this package serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer promauto writes to.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads back everything registered on Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - serpapi_requests_total{engine, status} (Counter): status is the HTTP code, "cached", "quota_blocked" or "network_error"
//   - serpapi_request_duration_seconds{engine} (Histogram)
//   - serpapi_errors_total{class} (Counter): client, server, rate_limit, network
//
// Retry Metrics (pkg/client):
//   - serpapi_retries_total{error_class} (Counter)
//   - serpapi_retry_backoff_seconds{error_class} (Histogram)
//   - serpapi_retry_exhausted_total{error_class} (Counter)
//
// Cache Metrics (pkg/cache):
//   - serpapi_cache_hits_total{layer="redis"} (Counter)
//   - serpapi_cache_misses_total (Counter)
//   - serpapi_cache_size_bytes{layer="redis"} (Gauge)
//   - serpapi_cache_errors_total{operation} (Counter)
//
// Quota Metrics (pkg/ratelimit):
//   - serpapi_searches_left (Gauge)
//   - serpapi_quota_blocks_total (Counter)
//   - serpapi_quota_throttles_total (Counter)
//
// Pagination Metrics (pkg/pagination, pkg/scholar):
//   - scholar_pages_fetched_total{endpoint} (Counter)
//   - scholar_items_collected_total{endpoint} (Counter)
//   - scholar_pagination_truncated_total{endpoint} (Counter)
//   - scholar_retrievals_total{endpoint, outcome} (Counter): ok, truncated, remote_error, error
//
// Scraper Metrics (pkg/mandates):
//   - scholar_mandates_rows_total (Counter)
//   - scholar_browser_sessions_active (Gauge)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(serpapi_cache_hits_total[5m])) /
//   (sum(rate(serpapi_cache_hits_total[5m])) + sum(rate(serpapi_cache_misses_total[5m])))
//
//   # Quota running low
//   serpapi_searches_left < 10
//
//   # Share of paginated retrievals cut short
//   sum(rate(scholar_pagination_truncated_total[1h])) by (endpoint)
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(serpapi_request_duration_seconds_bucket[5m]))

// Package metrics exposes the Prometheus metrics of the EDGAR client.
// Metrics are defined in their respective packages (client, ratelimit,
// cache, pagination, download, extract, feed) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry all EDGAR metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer reads the metrics registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Budget (pkg/ratelimit):
//   - edgar_rate_limit_wait_seconds (Histogram): Time spent waiting for a free request slot
//   - edgar_rate_limit_acquired_total{backend} (Counter): Slots handed out (memory, redis)
//
// Requests (pkg/client):
//   - edgar_requests_total{host, status} (Counter): Requests by host and HTTP status
//   - edgar_request_duration_seconds{host} (Histogram): Request duration by host
//   - edgar_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retries (pkg/client):
//   - edgar_retries_total{error_class} (Counter): Retry attempts
//   - edgar_retry_backoff_seconds{error_class} (Histogram): Backoff before each retry
//   - edgar_retry_exhausted_total{error_class} (Counter): Requests that used every attempt
//
// Response Cache (pkg/cache):
//   - edgar_cache_hits_total{backend} (Counter): Cache hits by store (memory, redis)
//   - edgar_cache_misses_total{backend} (Counter): Cache misses by store
//   - edgar_cache_errors_total{operation} (Counter): Cache operation errors
//
// Filings (pkg/pagination, pkg/download):
//   - edgar_pagination_pages_total{kind} (Counter): Submissions pages fetched (first, continuation)
//   - edgar_pagination_descriptors_total (Counter): Filings selected for download
//   - edgar_download_filings_total{result} (Counter): Filings saved or skipped
//   - edgar_download_bytes_total{kind} (Counter): Bytes written by artifact kind
//
// Bulk Extraction (pkg/extract):
//   - edgar_extract_members_total{result} (Counter): Archive members written, existing or failed
//   - edgar_extract_run_duration_seconds (Histogram): Duration of complete runs
//
// Feed (pkg/feed):
//   - edgar_feed_entries_total (Counter): Entries delivered to handlers
//
// Example Prometheus Queries:
//
//   # Requests per second against the 10/s ceiling
//   sum(rate(edgar_requests_total[1m]))
//
//   # Rate limit pushback
//   rate(edgar_errors_total{class="rate_limit"}[5m])
//
//   # P95 budget wait
//   histogram_quantile(0.95, rate(edgar_rate_limit_wait_seconds_bucket[5m]))
//
//   # Extraction failure ratio
//   rate(edgar_extract_members_total{result="failed"}[1h]) /
//   rate(edgar_extract_members_total[1h])

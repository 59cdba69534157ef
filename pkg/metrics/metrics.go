// Package metrics provides the Prometheus registry and HTTP handler for the
// Canvas client and MCP server. Metrics are defined in their respective
// packages (client, pagination, ratelimit, session, mcpserver) to keep them
// next to the code that records them.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registerer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - canvas_requests_total{method, status} (Counter): Canvas API attempts by method and HTTP status
//   - canvas_request_duration_seconds{method} (Histogram): Attempt duration by method
//   - canvas_errors_total{class} (Counter): Failed attempts by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - canvas_retries_total{error_class} (Counter): Retry attempts by error class
//   - canvas_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - canvas_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - canvas_pages_fetched_total (Counter): Follow-up pages fetched through Link headers
//   - canvas_pagination_truncated_total (Counter): Listings stopped at the page ceiling
//
// Rate Limit Metrics (pkg/ratelimit):
//   - canvas_rate_limit_remaining (Gauge): Last X-Rate-Limit-Remaining reported by Canvas
//   - canvas_request_cost (Histogram): X-Request-Cost of responses
//   - canvas_rate_limit_low_total (Counter): Responses seen with the quota below the warning threshold
//
// Session Metrics (pkg/session):
//   - canvas_sessions_active (Gauge): Live pager sessions in the memory store
//   - canvas_session_lookups_total{store, result} (Counter): Session lookups (hit, miss)
//   - canvas_session_errors_total (Counter): Session store errors
//
// MCP Metrics (internal/mcpserver):
//   - canvas_tool_calls_total{tool, outcome} (Counter): Tool calls by outcome (success, error, invalid)
//   - canvas_tool_duration_seconds{tool} (Histogram): Tool call duration
//   - canvas_resource_reads_total{resource, outcome} (Counter): Resource reads by outcome
//
// Example Prometheus Queries:
//
//   # Tool Error Rate
//   sum(rate(canvas_tool_calls_total{outcome="error"}[5m])) / sum(rate(canvas_tool_calls_total[5m]))
//
//   # Quota Status
//   canvas_rate_limit_remaining < 100
//
//   # Request Error Rate
//   rate(canvas_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(canvas_request_duration_seconds_bucket[5m]))
//
//   # Retry Rate
//   rate(canvas_retries_total[5m]) / rate(canvas_requests_total[5m])

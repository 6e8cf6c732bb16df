// Package metrics exposes the Prometheus metrics of the DOAB scraper.
// All metrics are defined in their respective packages (client, ratelimit,
// pagination, scraper) and registered via promauto on the default registry.
//
// This package provides the scrape handler and a reference of all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the scraper.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - doab_requests_total{status} (Counter): Upstream requests by HTTP status
//   - doab_request_duration_seconds (Histogram): Upstream request duration
//   - doab_errors_total{class} (Counter): Errors by class (timeout, network, client, server)
//
// Retry Metrics (pkg/client):
//   - doab_retries_total{error_class} (Counter): Retry attempts by error class
//   - doab_retry_exhausted_total{error_class} (Counter): Requests that exhausted max attempts
//
// Failure Budget Metrics (pkg/ratelimit):
//   - doab_upstream_failures (Gauge): Consecutive exhausted-retry failures
//   - doab_upstream_blocks_total (Counter): Times the upstream was blocked for a cooldown
//
// Pagination Metrics (pkg/pagination):
//   - doab_pages_fetched_total (Counter): Search result pages fetched
//   - doab_records_discarded_total (Counter): Records whose year did not match
//
// Scrape Metrics (pkg/scraper):
//   - doab_scrapes_total{outcome} (Counter): Scrapes by outcome (success, error)
//   - doab_scrape_years_total (Counter): Per-year collections started
//   - doab_scrape_books_total (Counter): Books returned
//   - doab_scrape_duration_seconds (Histogram): Scrape duration
//
// Example Prometheus Queries:
//
//   # Scrape Error Rate
//   rate(doab_scrapes_total{outcome="error"}[5m]) / rate(doab_scrapes_total[5m])
//
//   # Upstream Timeouts
//   rate(doab_errors_total{class="timeout"}[5m])
//
//   # Year Filter Efficiency
//   rate(doab_records_discarded_total[5m]) / rate(doab_pages_fetched_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(doab_request_duration_seconds_bucket[5m]))

// Package metrics exposes the Prometheus registry used by the rbx client.
// All metrics are defined in their respective packages (cursor, client, cache,
// pagination) to maintain modularity and avoid circular dependencies.
//
// This package provides the scrape handler and a reference for all available metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the rbx client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer behind Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Serve exposes Handler on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Metrics Documentation
//
// Cursor Metrics (pkg/cursor):
//   - rbx_cursor_page_fetches_total{direction, result} (Counter): Timeline moves by direction (forward, backwards) and result (ok, no_cursor, error)
//   - rbx_cursor_items_yielded_total (Counter): Items handed out by item iterators
//   - rbx_cursor_prefetch_items (Histogram): Items buffered per WithCapacity call
//   - rbx_cursor_prefetch_interrupted_total{reason} (Counter): Prefetches that stopped short (exhausted, error)
//
// Cache Metrics (pkg/cache):
//   - rbx_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - rbx_cache_misses_total (Counter): Cache misses
//   - rbx_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - rbx_cache_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - rbx_cache_not_modified_total (Counter): 304 Not Modified responses served from cache
//   - rbx_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - rbx_requests_total{route, status} (Counter): Total requests by route and HTTP status
//   - rbx_request_duration_seconds{route} (Histogram): Request duration by route
//   - rbx_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - rbx_retries_total{error_class} (Counter): Retry attempts by error class
//   - rbx_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - rbx_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Batch Metrics (pkg/pagination):
//   - rbx_batch_endpoints_total{result} (Counter): Endpoints drained by result (ok, error)
//   - rbx_batch_duration_seconds (Histogram): Duration of batch fetches
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(rbx_cache_hits_total[5m])) /
//   (sum(rate(rbx_cache_hits_total[5m])) + sum(rate(rbx_cache_misses_total[5m])))
//
//   # Exhausted timelines vs. failed moves
//   sum by (result) (rate(rbx_cursor_page_fetches_total[5m]))
//
//   # Request Error Rate
//   rate(rbx_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(rbx_request_duration_seconds_bucket[5m]))
//
//   # 304 Response Rate
//   rate(rbx_cache_not_modified_total[5m]) / rate(rbx_requests_total[5m])

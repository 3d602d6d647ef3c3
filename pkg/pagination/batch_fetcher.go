package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/rbx-client/pkg/cursor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for batch fetches.
var (
	// EndpointsFetched counts drained endpoints by result (ok, error).
	EndpointsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rbx_batch_endpoints_total",
		Help: "Total endpoints drained by batch fetches, by result",
	}, []string{"result"})

	// BatchDuration tracks the wall time of FetchAll calls.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rbx_batch_duration_seconds",
		Help:    "Duration of batch fetches in seconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60},
	})
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of collections walked at once
	MaxConcurrency int
	// Timeout bounds the walk of one endpoint
	Timeout time.Duration
	// MaxItems caps the items taken per endpoint (0 = all)
	MaxItems int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        time.Minute,
	}
}

// EndpointResult is the outcome of draining one endpoint.
type EndpointResult[T any] struct {
	Endpoint string
	Items    []T
	Error    error
}

// BatchFetcher drains multiple cursor collections in parallel
type BatchFetcher[T any] struct {
	source cursor.Source[[]T]
	config Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](source cursor.Source[[]T], config Config) *BatchFetcher[T] {
	if source == nil {
		panic("pagination: source cannot be nil")
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	if config.MaxItems < 0 {
		config.MaxItems = 0
	}

	return &BatchFetcher[T]{
		source: source,
		config: config,
	}
}

// FetchAll drains every endpoint and returns endpoint -> items.
//
// Endpoints that fail keep the items gathered before the failure; their errors
// are joined into the returned error. Duplicate endpoints are fetched once.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, endpoints []string) (map[string][]T, error) {
	start := time.Now()
	defer func() {
		BatchDuration.Observe(time.Since(start).Seconds())
	}()

	unique := make([]string, 0, len(endpoints))
	seen := make(map[string]struct{}, len(endpoints))
	for _, endpoint := range endpoints {
		if _, ok := seen[endpoint]; ok {
			continue
		}
		seen[endpoint] = struct{}{}
		unique = append(unique, endpoint)
	}

	results := make(map[string][]T, len(unique))
	if len(unique) == 0 {
		return results, nil
	}

	log.Info().
		Int("endpoints", len(unique)).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting batch fetch")

	queue := make(chan string, len(unique))
	for _, endpoint := range unique {
		queue <- endpoint
	}
	close(queue)

	endpointResults := make(chan EndpointResult[T], len(unique))

	var wg sync.WaitGroup
	for i := 0; i < min(bf.config.MaxConcurrency, len(unique)); i++ {
		wg.Add(1)
		go bf.worker(ctx, queue, endpointResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(endpointResults)
	}()

	var errs []error
	items := 0
	for result := range endpointResults {
		results[result.Endpoint] = result.Items
		items += len(result.Items)

		if result.Error != nil {
			EndpointsFetched.WithLabelValues("error").Inc()
			log.Warn().
				Err(result.Error).
				Str("endpoint", result.Endpoint).
				Int("items", len(result.Items)).
				Msg("Endpoint fetch failed")
			errs = append(errs, fmt.Errorf("%s: %w", result.Endpoint, result.Error))
			continue
		}
		EndpointsFetched.WithLabelValues("ok").Inc()
	}

	if len(errs) > 0 {
		log.Warn().
			Int("failed", len(errs)).
			Int("endpoints", len(unique)).
			Msg("Batch fetch incomplete - returning partial results")
		return results, fmt.Errorf("batch fetch (%d/%d endpoints failed): %w", len(errs), len(unique), errors.Join(errs...))
	}

	log.Info().
		Int("endpoints", len(unique)).
		Int("items", items).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// worker drains endpoints from the queue
func (bf *BatchFetcher[T]) worker(ctx context.Context, queue <-chan string, results chan<- EndpointResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for endpoint := range queue {
		if err := ctx.Err(); err != nil {
			results <- EndpointResult[T]{Endpoint: endpoint, Error: err}
			continue
		}

		items, err := bf.drain(ctx, endpoint)
		results <- EndpointResult[T]{Endpoint: endpoint, Items: items, Error: err}
		processed++
	}

	log.Debug().
		Int("worker_id", workerID).
		Int("endpoints_processed", processed).
		Msg("Worker completed")
}

// drain walks one collection from its first page.
func (bf *BatchFetcher[T]) drain(ctx context.Context, endpoint string) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	first, err := bf.source.Fetch(ctx, endpoint, "")
	if err != nil {
		return nil, err
	}

	return cursor.NewItemIterator(first, bf.source).Collect(ctx, bf.config.MaxItems)
}

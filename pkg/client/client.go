// Package client provides the HTTP client for the Roblox web APIs: request
// retries, an optional Redis page cache, and cursor page fetching for the
// cursor package.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/rbx-client/pkg/cache"
	"github.com/Sternrassler/rbx-client/pkg/cursor"
	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rbx_requests_total",
		Help: "Total API requests by route and status",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rbx_request_duration_seconds",
		Help:    "API request duration in seconds by route",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rbx_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the users API host.
const DefaultBaseURL = "https://users.roblox.com"

// Client is the API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL resolves relative endpoints.
	BaseURL string

	// User-Agent header (REQUIRED)
	UserAgent string

	// PageLimit is sent as the limit parameter of page requests (1..100).
	PageLimit int

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Retry controls retries of server, rate limit and network failures.
	Retry RetryConfig

	// Redis enables the page cache when set.
	Redis *redis.Client

	// CacheTTL is how long responses without an Expires header stay cached.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration without caching.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		PageLimit: cursor.MaxPageSize,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
		CacheTTL:  time.Minute,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.PageLimit < 1 || cfg.PageLimit > cursor.MaxPageSize {
		return nil, fmt.Errorf("page_limit must be between 1 and %d (got %d)", cursor.MaxPageSize, cfg.PageLimit)
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil || !baseURL.IsAbs() {
		return nil, fmt.Errorf("base_url must be an absolute URL (got %q)", cfg.BaseURL)
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		config:  cfg,
		logger:  log.With().Str("component", "rbx-client").Logger(),
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Do performs an HTTP request with caching, retries and metrics.
//
// Responses with 4xx status codes are returned as-is for the caller to handle.
// Retryable failures that persist are returned as an error wrapping ErrRetryExhausted
// and the last *APIError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	route := routeLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	var cacheKey cache.CacheKey
	var cachedEntry *cache.CacheEntry
	if c.cache != nil {
		cacheKey = cache.KeyFromURL(req.URL)

		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", req.URL.Path).Msg("Cache get error")
		}
		cachedEntry = entry

		if cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("endpoint", req.URL.Path).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing API request")

	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.config.Retry, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			errClass := classifyError(nil, reqErr)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(route, "network_error").Inc()
			c.logger.Error().Err(reqErr).Str("endpoint", req.URL.Path).Msg("HTTP request failed")
			if ctx.Err() != nil {
				// cancelled by the caller, not worth another attempt
				return reqErr
			}
			return &APIError{
				ErrorClass: errClass,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		requestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass := classifyError(resp, nil)
			errorsTotal.WithLabelValues(string(errClass)).Inc()

			c.logger.Warn().
				Str("endpoint", req.URL.Path).
				Int("status_code", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			if shouldRetry(errClass) {
				resp.Body.Close()
				return &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
			}
		}

		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", req.URL.Path).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}

		finalReq := resp.Request
		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry, finalReq), nil
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", req.URL.Path).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// Get performs a GET request. Relative endpoints resolve against the base URL.
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	u, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON performs a GET request and decodes a successful JSON body into v.
func (c *Client) GetJSON(ctx context.Context, endpoint string, v any) error {
	resp, err := c.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(body, v); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the page cache, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// PageLimit returns the page size requested from the API.
func (c *Client) PageLimit() int {
	return c.config.PageLimit
}

func (c *Client) resolve(endpoint string) (*url.URL, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// readBody reads resp.Body and turns non-2xx responses into an *APIError.
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyError(resp, nil)
		if errClass == "" {
			errClass = ErrorClassClient
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    strings.TrimSpace(resp.Status + " " + truncate(string(body), 200)),
		}
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// routeLabel replaces numeric path segments so metrics stay low-cardinality.
//
//	/v1/users/156/ -> /v1/users/:id/
func routeLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

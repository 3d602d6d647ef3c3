// Package cache provides an optional Redis-backed HTTP response cache for the
// API client.
//
// Cached pages are keyed by host, path and query string, so every cursor page
// of a collection gets its own entry. Entries live until the response's Expires
// header, or for a caller-chosen fallback TTL when the upstream sends none.
// Entries carrying an ETag or Last-Modified value are revalidated with a
// conditional request; a 304 Not Modified answer is served from the cache.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.KeyFromURL(req.URL)
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch upstream
//	}
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - rbx_cache_hits_total{layer="redis"}
//   - rbx_cache_misses_total
//   - rbx_cache_size_bytes{layer="redis"}
//   - rbx_cache_conditional_requests_total
//   - rbx_cache_not_modified_total
//   - rbx_cache_errors_total{operation}
//
// The cursor package never consults this cache; it is purely a transport concern.
package cache

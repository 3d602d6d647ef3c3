//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/rbx-client/internal/testutil"
	"github.com/Sternrassler/rbx-client/pkg/cache"
	"github.com/Sternrassler/rbx-client/pkg/client"
	"github.com/Sternrassler/rbx-client/pkg/cursor"
	"github.com/Sternrassler/rbx-client/pkg/pagination"
	"github.com/Sternrassler/rbx-client/pkg/users"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})

	return redisClient
}

func newCachedClient(t *testing.T, mock *testutil.MockAPI, redisClient *redis.Client) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig("TestApp/1.0.0 (integration@test.com)")
	cfg.BaseURL = mock.URL()
	cfg.Redis = redisClient
	cfg.Retry.InitialBackoff = 10 * time.Millisecond
	cfg.Retry.MaxBackoff = 50 * time.Millisecond

	c, err := client.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func seedUsers(mock *testutil.MockAPI, n int) []users.UserQuery {
	results := make([]users.UserQuery, n)
	for i := range results {
		results[i] = users.UserQuery{ID: uint64(i + 1), Name: fmt.Sprintf("user%d", i+1), DisplayName: fmt.Sprintf("User %d", i+1)}
	}
	mock.SetCollection(users.SearchEndpoint, testutil.Items(results), 100)
	return results
}

// TestCachedPageFlow tests miss -> store -> conditional request -> 304 served from cache.
func TestCachedPageFlow(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	results := seedUsers(mock, 50)

	c := newCachedClient(t, mock, redisClient)
	source := client.NewPageSource[[]users.UserQuery](c)
	ctx := context.Background()
	notModifiedBefore := promtest.ToFloat64(cache.NotModifiedResponses)

	// Request 1: cache miss, stored
	page1, err := source.Fetch(ctx, users.SearchURL("test"), "")
	require.NoError(t, err)
	assert.Equal(t, results, page1.Data)
	assert.Equal(t, 1, mock.GetRequestCount())
	assert.Equal(t, 0, mock.GetConditionalCount())

	// Request 2: conditional request answered with 304
	page2, err := source.Fetch(ctx, users.SearchURL("test"), "")
	require.NoError(t, err)
	assert.Equal(t, page1.Data, page2.Data)
	assert.Equal(t, page1.Endpoint, page2.Endpoint)
	assert.Equal(t, 2, mock.GetRequestCount())
	assert.Equal(t, 1, mock.GetConditionalCount())
	assert.Equal(t, notModifiedBefore+1, promtest.ToFloat64(cache.NotModifiedResponses))

	// Different keyword: separate cache entry
	_, err = source.Fetch(ctx, users.SearchURL("other"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.GetConditionalCount())
}

// TestCacheKeysIncludeCursor tests that pages of one collection are cached separately.
func TestCacheKeysIncludeCursor(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	results := seedUsers(mock, 250)

	c := newCachedClient(t, mock, redisClient)
	svc := users.NewService(c)
	ctx := context.Background()

	tl, err := svc.SearchTimeline(ctx, "test")
	require.NoError(t, err)

	second, err := tl.Forward(ctx)
	require.NoError(t, err)
	assert.Equal(t, results[100:200], second.Data)

	again, err := tl.Forward(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, again)

	assert.Equal(t, 3, mock.GetRequestCount())
	assert.Equal(t, 1, mock.GetConditionalCount())

	for _, cursorToken := range []string{"", testutil.EncodeCursor(100)} {
		u := fmt.Sprintf("%s%s&limit=100", mock.URL(), users.SearchURL("test"))
		if cursorToken != "" {
			u += "&cursor=" + cursorToken
		}
		req, err := http.NewRequest(http.MethodGet, u, nil)
		require.NoError(t, err)

		_, err = c.Cache().Get(ctx, cache.KeyFromURL(req.URL))
		assert.NoError(t, err, "page with cursor %q should be cached", cursorToken)
	}
}

// TestFullTraversalWithCache tests a prefetched traversal served twice.
func TestFullTraversalWithCache(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	results := seedUsers(mock, 250)

	c := newCachedClient(t, mock, redisClient)
	svc := users.NewService(c)
	ctx := context.Background()

	for round := 1; round <= 2; round++ {
		it, err := svc.SearchIterator(ctx, "test", 250)
		require.NoError(t, err)

		all, err := it.Collect(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, results, all, "round %d", round)
		assert.False(t, it.HasRemaining(ctx))
	}

	assert.Equal(t, 6, mock.GetRequestCount())
	assert.Equal(t, 3, mock.GetConditionalCount())
}

// TestBatchFetchWithCache tests parallel traversal of several keywords through the cache.
func TestBatchFetchWithCache(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	results := seedUsers(mock, 120)

	c := newCachedClient(t, mock, redisClient)
	svc := users.NewService(c)

	endpoints := []string{users.SearchURL("a"), users.SearchURL("b"), users.SearchURL("c")}
	fetcher := pagination.NewBatchFetcher(svc.Source(), pagination.Config{MaxConcurrency: 3})

	got, err := fetcher.FetchAll(context.Background(), endpoints)
	require.NoError(t, err)
	for _, endpoint := range endpoints {
		assert.Equal(t, results, got[endpoint], endpoint)
	}
	assert.Equal(t, 6, mock.GetRequestCount())
}

// TestRetry5xxErrors tests that transient failures are retried below the cursor layer.
func TestRetry5xxErrors(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()

	attempts := 0
	mock.SetHandler(users.SearchEndpoint, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"previousPageCursor":null,"nextPageCursor":null,"data":[{"id":1,"name":"a","displayName":"A"}]}`))
	})

	c := newCachedClient(t, mock, redisClient)
	page, err := users.NewService(c).Search(context.Background(), "test")
	require.NoError(t, err)

	assert.Equal(t, []users.UserQuery{{ID: 1, Name: "a", DisplayName: "A"}}, page.Data)
	assert.Equal(t, 3, attempts)
}

// TestNoRetry4xxErrors tests that client errors surface unchanged through the timeline.
func TestNoRetry4xxErrors(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	seedUsers(mock, 150)

	c := newCachedClient(t, mock, redisClient)
	ctx := context.Background()

	page := cursor.Page[[]users.UserQuery]{
		Endpoint:   mock.URL() + users.SearchURL("test"),
		NextCursor: "not-a-cursor!",
	}
	_, err := page.Timeline(client.NewPageSource[[]users.UserQuery](c)).Forward(ctx)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, cursor.IsExhausted(err))
	assert.Equal(t, 1, mock.GetRequestCount())
}

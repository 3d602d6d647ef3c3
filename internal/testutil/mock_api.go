// Package testutil provides test doubles for the API client: an httptest
// server that serves cursor-paginated collections, and an in-memory cursor source.
package testutil

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Path   string
	Query  url.Values
	Header http.Header
}

type collection struct {
	items    []any
	pageSize int
}

// MockAPI is a configurable mock API server for testing.
type MockAPI struct {
	server *httptest.Server

	mu          sync.RWMutex
	handlers    map[string]http.HandlerFunc
	collections map[string]*collection
	redirects   map[string]string
	requests    []RecordedRequest

	// Tracking
	RequestCount     int
	ConditionalCount int
}

// NewMockAPI starts a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:    make(map[string]http.HandlerFunc),
		collections: make(map[string]*collection),
		redirects:   make(map[string]string),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.serve))
	return mock
}

func (m *MockAPI) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}
	m.requests = append(m.requests, RecordedRequest{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})
	target, redirected := m.redirects[r.URL.Path]
	handler, hasHandler := m.handlers[r.URL.Path]
	coll, hasCollection := m.collections[r.URL.Path]
	m.mu.Unlock()

	switch {
	case redirected:
		u := *r.URL
		u.Path = target
		http.Redirect(w, r, u.String(), http.StatusTemporaryRedirect)
	case hasHandler:
		handler(w, r)
	case hasCollection:
		m.servePage(w, r, coll)
	default:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"code":0,"message":"NotFound"}]}`))
	}
}

func (m *MockAPI) servePage(w http.ResponseWriter, r *http.Request, coll *collection) {
	size := coll.pageSize
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < size {
		size = limit
	}

	offset := 0
	if token := r.URL.Query().Get("cursor"); token != "" {
		n, ok := DecodeCursor(token)
		if !ok || n > len(coll.items) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":[{"code":1,"message":"InvalidCursor"}]}`))
			return
		}
		offset = n
	}

	end := min(offset+size, len(coll.items))
	page := map[string]any{
		"previousPageCursor": nil,
		"nextPageCursor":     nil,
		"data":               coll.items[offset:end],
	}
	if offset > 0 {
		page["previousPageCursor"] = EncodeCursor(max(offset-size, 0))
	}
	if end < len(coll.items) {
		page["nextPageCursor"] = EncodeCursor(end)
	}

	etag := fmt.Sprintf(`"%s-%d-%d"`, strings.Trim(r.URL.Path, "/"), offset, size)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := sonic.Marshal(page)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// EncodeCursor returns the opaque cursor for an item offset.
func EncodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("offset:" + strconv.Itoa(offset)))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(token string) (int, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(raw), "offset:"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection serves items at path as a cursor-paginated collection with
// at most pageSize items per page. A smaller limit query parameter wins.
func (m *MockAPI) SetCollection(path string, items []any, pageSize int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[path] = &collection{items: items, pageSize: pageSize}
}

// SetRedirect answers requests for from with a 307 to the same URL at path to.
func (m *MockAPI) SetRedirect(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirects[from] = to
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// Requests returns the requests seen so far.
func (m *MockAPI) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors":[{"code":0,"message":"TooManyRequests"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors":[{"code":0,"message":"InternalServerError"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// Items converts a typed slice for SetCollection.
func Items[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

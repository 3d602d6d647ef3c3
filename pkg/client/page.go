package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/rbx-client/pkg/cursor"
	"github.com/bytedance/sonic"
)

// Pagination query parameters.
const (
	QueryLimit  = "limit"
	QueryCursor = "cursor"
)

// RawPage is an undecoded page response.
type RawPage struct {
	// Endpoint is the URL the response came from after redirects, without
	// the limit and cursor parameters.
	Endpoint string

	StatusCode int
	Body       []byte
}

// FetchPage requests one page of a cursor-paginated collection.
//
// The request is a GET to endpoint with limit set to the configured page
// limit and cursor set to token (omitted when token is empty).
func (c *Client) FetchPage(ctx context.Context, endpoint, token string) (*RawPage, error) {
	u, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set(QueryLimit, strconv.Itoa(c.config.PageLimit))
	if token != "" {
		q.Set(QueryCursor, token)
	} else {
		q.Del(QueryCursor)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	resolved := u
	if resp.Request != nil && resp.Request.URL != nil {
		resolved = resp.Request.URL
	}

	return &RawPage{
		Endpoint:   stripPagination(resolved),
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// stripPagination returns u without the limit and cursor parameters.
func stripPagination(u *url.URL) string {
	stripped := *u
	q := stripped.Query()
	q.Del(QueryLimit)
	q.Del(QueryCursor)
	stripped.RawQuery = q.Encode()
	return stripped.String()
}

// PageSource decodes cursor pages of T from the API. It implements cursor.Source.
type PageSource[T any] struct {
	client *Client
}

// NewPageSource creates a page source using c.
func NewPageSource[T any](c *Client) *PageSource[T] {
	return &PageSource[T]{client: c}
}

// Fetch implements cursor.Source. The page is stamped with the resolved endpoint.
func (s *PageSource[T]) Fetch(ctx context.Context, endpoint, token string) (cursor.Page[T], error) {
	raw, err := s.client.FetchPage(ctx, endpoint, token)
	if err != nil {
		return cursor.Page[T]{}, err
	}

	var page cursor.Page[T]
	if err := sonic.Unmarshal(raw.Body, &page); err != nil {
		return cursor.Page[T]{}, &APIError{
			StatusCode: raw.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode page",
			Err:        err,
		}
	}

	page.Endpoint = raw.Endpoint
	return page, nil
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Sternrassler/rbx-client/pkg/cursor"
)

// ErrUnknownCursor is returned by MemorySource for cursors it never handed out.
var ErrUnknownCursor = errors.New("unknown cursor")

// FetchCall records one MemorySource.Fetch invocation.
type FetchCall struct {
	Endpoint string
	Cursor   string
}

// MemorySource is an in-memory cursor.Source over a fixed list of pages.
//
// Page i is addressed by cursor "p<i>"; the empty cursor addresses page 0.
type MemorySource[T any] struct {
	endpoint string
	pages    [][]T

	mu       sync.Mutex
	calls    []FetchCall
	failures []error
}

// NewMemorySource splits items into pages of pageSize.
func NewMemorySource[T any](endpoint string, items []T, pageSize int) *MemorySource[T] {
	if pageSize <= 0 {
		pageSize = cursor.MaxPageSize
	}
	var pages [][]T
	for start := 0; start < len(items); start += pageSize {
		end := min(start+pageSize, len(items))
		pages = append(pages, items[start:end])
	}
	if len(pages) == 0 {
		pages = [][]T{{}}
	}
	return NewMemorySourceFromPages(endpoint, pages...)
}

// NewMemorySourceFromPages serves the given pages in order. Empty pages are allowed.
func NewMemorySourceFromPages[T any](endpoint string, pages ...[]T) *MemorySource[T] {
	return &MemorySource[T]{
		endpoint: endpoint,
		pages:    pages,
	}
}

// Fetch implements cursor.Source.
func (s *MemorySource[T]) Fetch(ctx context.Context, endpoint, token string) (cursor.Page[[]T], error) {
	s.mu.Lock()
	s.calls = append(s.calls, FetchCall{Endpoint: endpoint, Cursor: token})
	var injected error
	if len(s.failures) > 0 {
		injected, s.failures = s.failures[0], s.failures[1:]
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return cursor.Page[[]T]{}, err
	}
	if injected != nil {
		return cursor.Page[[]T]{}, injected
	}
	if endpoint != s.endpoint {
		return cursor.Page[[]T]{}, fmt.Errorf("unknown endpoint %q", endpoint)
	}

	index := 0
	if token != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(token, "p"))
		if err != nil || !strings.HasPrefix(token, "p") || n < 0 || n >= len(s.pages) {
			return cursor.Page[[]T]{}, fmt.Errorf("%w: %q", ErrUnknownCursor, token)
		}
		index = n
	}
	return s.page(index), nil
}

// FirstPage returns page 0 without recording a call.
func (s *MemorySource[T]) FirstPage() cursor.Page[[]T] {
	return s.page(0)
}

// FailNext makes the next len(errs) fetches fail with errs, in order.
func (s *MemorySource[T]) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// Calls returns the fetches made so far.
func (s *MemorySource[T]) Calls() []FetchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FetchCall(nil), s.calls...)
}

// CallCount returns the number of fetches made so far.
func (s *MemorySource[T]) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *MemorySource[T]) page(index int) cursor.Page[[]T] {
	page := cursor.Page[[]T]{
		Endpoint: s.endpoint,
		Data:     append([]T{}, s.pages[index]...),
	}
	if index > 0 {
		page.PreviousCursor = "p" + strconv.Itoa(index-1)
	}
	if index < len(s.pages)-1 {
		page.NextCursor = "p" + strconv.Itoa(index+1)
	}
	return page
}

package cursor

import "context"

// MaxPageSize is the largest page the upstream API serves.
const MaxPageSize = 100

// Page is one fetched page of a cursor-paginated collection.
//
// An empty cursor means the neighbour in that direction does not exist.
type Page[T any] struct {
	// Endpoint is the resolved address the page was fetched from. Navigation
	// always targets this endpoint, not the one originally requested.
	Endpoint string `json:"-"`

	// PreviousCursor points at the page before this one.
	PreviousCursor string `json:"previousPageCursor"`

	// NextCursor points at the page after this one.
	NextCursor string `json:"nextPageCursor"`

	// Data is the page payload.
	Data T `json:"data"`
}

// HasNext reports whether a later page can be requested.
func (p Page[T]) HasNext() bool {
	return p.NextCursor != ""
}

// HasPrevious reports whether an earlier page can be requested.
func (p Page[T]) HasPrevious() bool {
	return p.PreviousCursor != ""
}

// Timeline returns a Timeline positioned at p.
func (p Page[T]) Timeline(source Source[T]) *CursorTimeline[T] {
	return NewTimeline(p, source)
}

// Source fetches a page of a collection.
//
// An empty cursor requests the first page. Implementations must stamp the
// returned page with the endpoint the data actually came from.
type Source[T any] interface {
	Fetch(ctx context.Context, endpoint, cursor string) (Page[T], error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[T any] func(ctx context.Context, endpoint, cursor string) (Page[T], error)

// Fetch calls f(ctx, endpoint, cursor).
func (f SourceFunc[T]) Fetch(ctx context.Context, endpoint, cursor string) (Page[T], error) {
	return f(ctx, endpoint, cursor)
}

package cursor

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Timeline navigates a cursor-paginated collection from one fixed page.
//
// The current page never changes. Forward and Backwards return the
// neighbouring page; to continue from there, wrap it in a new Timeline.
type Timeline[T any] interface {
	// Current returns the page the timeline was built from.
	Current() Page[T]

	// Forward fetches the page after Current.
	Forward(ctx context.Context) (Page[T], error)

	// Backwards fetches the page before Current.
	Backwards(ctx context.Context) (Page[T], error)
}

// CursorTimeline is the Source-backed Timeline implementation.
type CursorTimeline[T any] struct {
	current Page[T]
	source  Source[T]
}

// NewTimeline creates a timeline positioned at page that navigates through source.
func NewTimeline[T any](page Page[T], source Source[T]) *CursorTimeline[T] {
	if source == nil {
		panic("cursor source cannot be nil")
	}
	return &CursorTimeline[T]{
		current: page,
		source:  source,
	}
}

// Point fetches the page at cursor from endpoint and returns a timeline positioned there.
// An empty cursor fetches the first page.
func Point[T any](ctx context.Context, source Source[T], endpoint, cursor string) (*CursorTimeline[T], error) {
	page, err := source.Fetch(ctx, endpoint, cursor)
	if err != nil {
		return nil, err
	}
	return NewTimeline(page, source), nil
}

// Current returns the page the timeline was built from.
func (t *CursorTimeline[T]) Current() Page[T] {
	return t.current
}

// Source returns the source the timeline navigates through.
func (t *CursorTimeline[T]) Source() Source[T] {
	return t.source
}

// Forward fetches the page after the current one.
// It fails with ErrNoNextCursor, without a request, when the current page is the last.
func (t *CursorTimeline[T]) Forward(ctx context.Context) (Page[T], error) {
	return t.navigate(ctx, DirectionForward, t.current.NextCursor, ErrNoNextCursor)
}

// Backwards fetches the page before the current one.
// It fails with ErrNoPreviousCursor, without a request, when the current page is the first.
func (t *CursorTimeline[T]) Backwards(ctx context.Context) (Page[T], error) {
	return t.navigate(ctx, DirectionBackwards, t.current.PreviousCursor, ErrNoPreviousCursor)
}

func (t *CursorTimeline[T]) navigate(ctx context.Context, dir Direction, token string, missing error) (Page[T], error) {
	if token == "" {
		PageFetches.WithLabelValues(string(dir), "no_cursor").Inc()
		return Page[T]{}, &NavigationError{
			Direction: dir,
			Endpoint:  t.current.Endpoint,
			Err:       missing,
		}
	}

	log.Debug().
		Str("endpoint", t.current.Endpoint).
		Str("direction", string(dir)).
		Str("cursor", token).
		Msg("Fetching adjacent page")

	page, err := t.source.Fetch(ctx, t.current.Endpoint, token)
	if err != nil {
		PageFetches.WithLabelValues(string(dir), "error").Inc()
		log.Debug().
			Err(err).
			Str("endpoint", t.current.Endpoint).
			Str("direction", string(dir)).
			Msg("Page fetch failed")
		return Page[T]{}, err
	}

	PageFetches.WithLabelValues(string(dir), "ok").Inc()
	return page, nil
}

package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ItemIterator flattens a timeline of item slices into a single item sequence.
//
// Items are returned in server order. When the held page runs dry the iterator
// moves its timeline forward and continues from the new page. Once the last
// page is drained every call to Next fails with ErrNoNextCursor.
type ItemIterator[T any] struct {
	timeline Timeline[[]T]
	wrap     func(Page[[]T]) Timeline[[]T]
}

// NewItemIterator creates an iterator starting at the first item of page.
func NewItemIterator[T any](page Page[[]T], source Source[[]T]) *ItemIterator[T] {
	if source == nil {
		panic("cursor source cannot be nil")
	}
	return NewTimelineIterator[T](NewTimeline(page, source), func(p Page[[]T]) Timeline[[]T] {
		return NewTimeline(p, source)
	})
}

// NewTimelineIterator creates an iterator over any Timeline implementation.
// wrap turns a page the iterator moved to, or a partly drained copy of the
// current page, into the timeline it continues from.
func NewTimelineIterator[T any](tl Timeline[[]T], wrap func(Page[[]T]) Timeline[[]T]) *ItemIterator[T] {
	if tl == nil || wrap == nil {
		panic("cursor timeline and wrap function cannot be nil")
	}
	return &ItemIterator[T]{
		timeline: tl,
		wrap:     wrap,
	}
}

// Timeline returns the timeline the iterator currently holds. Its current
// page contains only the items not yet returned by Next.
func (it *ItemIterator[T]) Timeline() Timeline[[]T] {
	return it.timeline
}

// Buffered returns the number of items available without a fetch.
func (it *ItemIterator[T]) Buffered() int {
	return len(it.timeline.Current().Data)
}

// Next returns the next item, fetching the following page when the held one is drained.
//
// Exhaustion is reported as an error matching ErrNoNextCursor. Fetch errors are
// returned unchanged and leave the iterator where it was, so Next may be retried.
func (it *ItemIterator[T]) Next(ctx context.Context) (T, error) {
	for {
		page := it.timeline.Current()
		if len(page.Data) > 0 {
			item := page.Data[0]
			page.Data = page.Data[1:]
			it.timeline = it.wrap(page)
			ItemsYielded.Inc()
			return item, nil
		}

		next, err := it.timeline.Forward(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		it.timeline = it.wrap(next)
	}
}

// HasRemaining reports whether Next would return an item.
//
// With nothing buffered it fetches ahead to find out, without committing the
// fetched pages. Any fetch failure is reported as false; use Remaining to see it.
func (it *ItemIterator[T]) HasRemaining(ctx context.Context) bool {
	ok, err := it.Remaining(ctx)
	if err != nil {
		log.Debug().
			Err(err).
			Str("endpoint", it.timeline.Current().Endpoint).
			Msg("Look-ahead fetch failed, reporting no remaining items")
		return false
	}
	return ok
}

// Remaining is HasRemaining with fetch errors surfaced. Exhaustion is not an error.
func (it *ItemIterator[T]) Remaining(ctx context.Context) (bool, error) {
	if it.Buffered() > 0 {
		return true, nil
	}

	var tl Timeline[[]T] = it.timeline
	for {
		next, err := tl.Forward(ctx)
		if err != nil {
			if IsExhausted(err) {
				return false, nil
			}
			return false, err
		}
		if len(next.Data) > 0 {
			return true, nil
		}
		tl = it.wrap(next)
	}
}

// Collect drains up to max items (all items when max <= 0).
// Reaching the end of the collection is not an error; any other failure is
// returned together with the items gathered so far.
func (it *ItemIterator[T]) Collect(ctx context.Context, max int) ([]T, error) {
	var items []T
	for max <= 0 || len(items) < max {
		item, err := it.Next(ctx)
		if err != nil {
			if IsExhausted(err) {
				return items, nil
			}
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// WithCapacity builds an iterator with up to target items buffered ahead of time.
//
// Starting at page, it drains at most MaxPageSize items per step and moves
// forward across page boundaries until target items are buffered or the
// collection ends. A failed forward move ends the fill early without an error;
// the resulting iterator retries that move on its next fetch.
//
// The returned iterator's first page holds the buffered items followed by the
// rest of the last page reached, with that page's cursors. The int result is
// the number of items buffered, which is below target only if the fill ended
// early. An error is returned only for invalid arguments.
func WithCapacity[T any](ctx context.Context, page Page[[]T], source Source[[]T], target int) (*ItemIterator[T], int, error) {
	if source == nil {
		return nil, 0, errors.New("cursor source cannot be nil")
	}
	if target < 0 {
		return nil, 0, fmt.Errorf("capacity must be >= 0 (got %d)", target)
	}

	current := page
	rest := page.Data
	remaining := target
	buffered := make([]T, 0, min(target, MaxPageSize))

	for remaining > 0 {
		if len(rest) == 0 {
			next, err := NewTimeline(current, source).Forward(ctx)
			if err != nil {
				reason := "error"
				event := log.Warn()
				if IsExhausted(err) {
					reason = "exhausted"
					event = log.Debug()
				}
				PrefetchInterrupted.WithLabelValues(reason).Inc()
				event.
					Err(err).
					Str("endpoint", current.Endpoint).
					Int("buffered", target-remaining).
					Int("target", target).
					Msg("Prefetch stopped before reaching capacity")
				break
			}
			current = next
			rest = next.Data
			continue
		}

		n := min(remaining, MaxPageSize, len(rest))
		buffered = append(buffered, rest[:n]...)
		rest = rest[n:]
		remaining -= n
	}

	filled := target - remaining
	PrefetchItems.Observe(float64(filled))

	merged := current
	merged.Data = append(buffered, rest...)

	log.Debug().
		Str("endpoint", merged.Endpoint).
		Int("buffered", filled).
		Int("items", len(merged.Data)).
		Msg("Prefetch complete")

	return NewItemIterator(merged, source), filled, nil
}

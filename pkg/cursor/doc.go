// Package cursor provides generic navigation over cursor-paginated collections.
//
// A collection is exposed one Page at a time. Each page carries opaque
// previous/next cursor tokens and the endpoint it was fetched from. The package
// never interprets cursor tokens; it only forwards tokens it previously received
// to a Source.
//
// The three building blocks are:
//
//   - Page: an immutable snapshot of one fetched page.
//   - Timeline: wraps one Page and fetches its neighbours on demand. Navigation
//     returns a new Page and never changes the Timeline itself.
//   - ItemIterator: flattens a Timeline of item slices into a single item
//     sequence, advancing across page boundaries and optionally pre-buffering a
//     run of items up front (WithCapacity).
//
// Basic usage:
//
//	page, err := source.Fetch(ctx, "https://users.roblox.com/v1/users/search?keyword=abc", "")
//	if err != nil {
//		return err
//	}
//	it := cursor.NewItemIterator(page, source)
//	for {
//		item, err := it.Next(ctx)
//		if cursor.IsExhausted(err) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		use(item)
//	}
//
// Navigating past either end of a collection fails with ErrNoNextCursor or
// ErrNoPreviousCursor before any request is made. Every other error comes from
// the Source and is returned unchanged, so callers can tell collection
// exhaustion apart from transport faults.
//
// Timelines and iterators are meant for a single consumer. Callers sharing one
// iterator across goroutines must serialize access themselves.
package cursor

// Package pagination drains several cursor-paginated collections in parallel.
//
// Each endpoint is an independent collection walked by its own
// cursor.ItemIterator; a worker pool bounds how many collections are walked at
// once. Pages of a single collection are always fetched in order, since each
// cursor is only known after the previous page arrives.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(users.NewService(c).Source(), pagination.DefaultConfig())
//	results, err := fetcher.FetchAll(ctx, []string{
//		users.SearchURL("builder"),
//		users.SearchURL("roblox"),
//	})
//
// The batch fetcher:
//   - Spawns a worker pool (default 4 workers)
//   - Gives every endpoint its own iterator and timeout
//   - Stops an endpoint after MaxItems items when set
//   - Returns partial data together with the joined endpoint errors
package pagination

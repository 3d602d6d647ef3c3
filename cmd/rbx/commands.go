package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/rbx-client/pkg/cursor"
	"github.com/Sternrassler/rbx-client/pkg/pagination"
	"github.com/Sternrassler/rbx-client/pkg/users"
	"github.com/spf13/cobra"
)

func newSearchCmd(opts *options) *cobra.Command {
	var maxItems, prefetch int

	cmd := &cobra.Command{
		Use:   "search <keyword>...",
		Short: "Search users by keyword",
		Long: `Search users by one or more keywords and print the results as JSON,
keyed by keyword. Several keywords are searched in parallel.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxItems < 0 {
				return fmt.Errorf("--max must be >= 0 (got %d)", maxItems)
			}
			if prefetch < 0 {
				return fmt.Errorf("--prefetch must be >= 0 (got %d)", prefetch)
			}

			c, closeFn, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			results, err := searchAll(cmd.Context(), users.NewService(c), args, maxItems, prefetch)
			if results != nil {
				if werr := writeJSON(cmd.OutOrStdout(), results); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	cmd.Flags().IntVar(&maxItems, "max", 0,
		"Maximum results per keyword (0 = all)")
	cmd.Flags().IntVar(&prefetch, "prefetch", 0,
		"Results to buffer before iterating (single keyword only)")

	return cmd
}

// searchAll returns keyword -> results. A single keyword is walked with an
// item iterator; several keywords go through a batch fetcher. On failure the
// results gathered so far are returned with the error.
func searchAll(ctx context.Context, svc *users.Service, keywords []string, maxItems, prefetch int) (map[string][]users.UserQuery, error) {
	for _, keyword := range keywords {
		if keyword == "" {
			return nil, users.ErrEmptyKeyword
		}
	}

	if len(keywords) == 1 {
		it, err := svc.SearchIterator(ctx, keywords[0], prefetch)
		if err != nil {
			return nil, err
		}
		items, err := it.Collect(ctx, maxItems)
		return map[string][]users.UserQuery{keywords[0]: nonNil(items)}, err
	}

	endpoints := make([]string, len(keywords))
	for i, keyword := range keywords {
		endpoints[i] = users.SearchURL(keyword)
	}

	fetcher := pagination.NewBatchFetcher(svc.Source(), pagination.Config{
		MaxConcurrency: 4,
		Timeout:        2 * time.Minute,
		MaxItems:       maxItems,
	})
	byEndpoint, err := fetcher.FetchAll(ctx, endpoints)

	results := make(map[string][]users.UserQuery, len(keywords))
	for i, keyword := range keywords {
		results[keyword] = nonNil(byEndpoint[endpoints[i]])
	}
	return results, err
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func newUserCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "user <id>",
		Short: "Show the details of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			c, closeFn, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := users.NewService(c).Lookup(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), user)
		},
	}
}

// pageSummary is one step of a pages walk.
type pageSummary struct {
	Index          int               `json:"index"`
	Direction      string            `json:"direction"`
	PreviousCursor string            `json:"previousPageCursor,omitempty"`
	NextCursor     string            `json:"nextPageCursor,omitempty"`
	Data           []users.UserQuery `json:"data"`
}

func newPagesCmd(opts *options) *cobra.Command {
	var count int
	var back bool

	cmd := &cobra.Command{
		Use:   "pages <keyword>",
		Short: "Walk search result pages forward (and back)",
		Long: `Walk up to --count search result pages forward, then with --back walk
backwards to the first page again. Each visited page is printed with its cursors.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be >= 1 (got %d)", count)
			}

			c, closeFn, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			steps, err := walkPages(cmd.Context(), users.NewService(c), args[0], count, back)
			if len(steps) > 0 {
				if werr := writeJSON(cmd.OutOrStdout(), steps); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	cmd.Flags().IntVar(&count, "count", 3, "Number of pages to walk forward")
	cmd.Flags().BoolVar(&back, "back", false, "Walk back to the first page afterwards")

	return cmd
}

// walkPages moves forward from the first search page until count pages were
// visited or the collection ends, then optionally back to the first page.
func walkPages(ctx context.Context, svc *users.Service, keyword string, count int, back bool) ([]pageSummary, error) {
	tl, err := svc.SearchTimeline(ctx, keyword)
	if err != nil {
		return nil, err
	}

	index := 0
	steps := []pageSummary{summarize(index, "start", tl.Current())}

	for len(steps) < count {
		next, err := tl.Forward(ctx)
		if cursor.IsExhausted(err) {
			break
		}
		if err != nil {
			return steps, err
		}
		index++
		steps = append(steps, summarize(index, string(cursor.DirectionForward), next))
		tl = next.Timeline(tl.Source())
	}

	for back && index > 0 {
		prev, err := tl.Backwards(ctx)
		if cursor.IsExhausted(err) {
			break
		}
		if err != nil {
			return steps, err
		}
		index--
		steps = append(steps, summarize(index, string(cursor.DirectionBackwards), prev))
		tl = prev.Timeline(tl.Source())
	}

	return steps, nil
}

func summarize(index int, direction string, page cursor.Page[[]users.UserQuery]) pageSummary {
	return pageSummary{
		Index:          index,
		Direction:      direction,
		PreviousCursor: page.PreviousCursor,
		NextCursor:     page.NextCursor,
		Data:           nonNil(page.Data),
	}
}

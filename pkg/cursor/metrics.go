package cursor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PageFetches counts navigation attempts by direction and result
	// ("ok", "no_cursor", "error").
	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbx_cursor_page_fetches_total",
			Help: "Total number of cursor navigation attempts by direction and result",
		},
		[]string{"direction", "result"},
	)

	// ItemsYielded counts items handed out by ItemIterator.Next.
	ItemsYielded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rbx_cursor_items_yielded_total",
			Help: "Total number of items returned by item iterators",
		},
	)

	// PrefetchItems observes how many items WithCapacity buffered.
	PrefetchItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rbx_cursor_prefetch_items",
			Help:    "Number of items buffered by a capacity prefetch",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 5000},
		},
	)

	// PrefetchInterrupted counts prefetches cut short, by reason
	// ("exhausted", "error").
	PrefetchInterrupted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rbx_cursor_prefetch_interrupted_total",
			Help: "Total number of capacity prefetches that stopped before reaching the target",
		},
		[]string{"reason"},
	)
)

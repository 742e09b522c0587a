package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/scholar-serp/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for paginated retrieval.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholar_pages_fetched_total",
		Help: "Total pages fetched by endpoint policy",
	}, []string{"endpoint"})

	itemsCollectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholar_items_collected_total",
		Help: "Total list items collected by endpoint policy",
	}, []string{"endpoint"})

	truncatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scholar_pagination_truncated_total",
		Help: "Paginated retrievals cut short by a remote error",
	}, []string{"endpoint"})
)

// Config holds paginator configuration.
type Config struct {
	// MaxPages caps the number of pages fetched by FetchAll. 0 means no cap.
	MaxPages int
}

// DefaultConfig returns the default configuration (no page cap).
func DefaultConfig() Config {
	return Config{MaxPages: 0}
}

// PageFetcher performs one remote call.
//
// A returned error is a transport failure and aborts retrieval. A remote
// error reported inside the response is returned as a failed PageResult.
type PageFetcher interface {
	FetchPage(ctx context.Context, params ParameterSet) (PageResult, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, params ParameterSet) (PageResult, error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc) FetchPage(ctx context.Context, params ParameterSet) (PageResult, error) {
	return f(ctx, params)
}

// Paginator drives a PageFetcher in single-page or cursor-following mode.
type Paginator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewPaginator creates a new paginator.
func NewPaginator(fetcher PageFetcher, config Config) *Paginator {
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &Paginator{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentPagination),
	}
}

// SetLogger replaces the paginator's logger.
func (p *Paginator) SetLogger(logger zerolog.Logger) {
	p.logger = logger
}

// FetchOne fetches exactly one page and normalizes it.
// A remote error is returned as *RemoteError; no partial result exists.
func (p *Paginator) FetchOne(ctx context.Context, params ParameterSet, policy Policy) (*Result, error) {
	res, err := p.fetch(ctx, params, 1, policy)
	if err != nil {
		return nil, err
	}

	if res.Failed() {
		p.logger.Error().
			Str("endpoint", policy.Name).
			Str("error", res.Remote.Message).
			Msg("Remote error on single-page fetch")
		return nil, res.Remote
	}

	if policy.Shape == ShapeList {
		items, err := Collect(res, policy.ListField)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", policy.ListField, err)
		}
		itemsCollectedTotal.WithLabelValues(policy.Name).Add(float64(len(items)))
		return &Result{Shape: ShapeList, Items: items, Pages: 1}, nil
	}

	return &Result{
		Shape:    ShapeDocument,
		Document: Normalize(res.Page, policy.VolatileKeys),
		Pages:    1,
	}, nil
}

// FetchAll follows pagination cursors until they run out and aggregates every
// page's list payload.
//
// A remote error does not fail the call: the loop stops, the error is logged
// and recorded in Result.Truncated, and the items gathered so far are returned.
// Transport errors and malformed pages fail the call.
func (p *Paginator) FetchAll(ctx context.Context, params ParameterSet, policy Policy) (*Result, error) {
	start := time.Now()

	var (
		buffer    FragmentBuffer
		first     Page
		last      Page
		truncated *RemoteError
	)

	current := params.Clone()
	for pageNum := 1; ; pageNum++ {
		if p.config.MaxPages > 0 && pageNum > p.config.MaxPages {
			p.logger.Info().
				Str("endpoint", policy.Name).
				Int("max_pages", p.config.MaxPages).
				Msg("Page cap reached, stopping pagination")
			break
		}

		res, err := p.fetch(ctx, current, pageNum, policy)
		if err != nil {
			return nil, err
		}

		items, err := Collect(res, policy.ListField)
		if err != nil {
			var remote *RemoteError
			if errors.As(err, &remote) {
				p.logger.Warn().
					Str("endpoint", policy.Name).
					Int("page", pageNum).
					Int("items", buffer.ItemCount()).
					Str("error", remote.Message).
					Msg("Remote error - returning partial results")
				truncatedTotal.WithLabelValues(policy.Name).Inc()
				truncated = remote
				break
			}
			return nil, fmt.Errorf("collect %s on page %d: %w", policy.ListField, pageNum, err)
		}

		buffer.Append(items)
		itemsCollectedTotal.WithLabelValues(policy.Name).Add(float64(len(items)))
		if first == nil {
			first = res.Page
		}
		last = res.Page

		p.logger.Debug().
			Str("endpoint", policy.Name).
			Int("page", pageNum).
			Int("items", len(items)).
			Msg("Page collected")

		next, ok, err := NextParams(res.Page, policy.cursorField())
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}
		if !ok {
			break
		}
		current = current.Merge(next)
	}

	base := last
	if policy.Base == BaseFirstPage {
		base = first
	}

	result := Finalize(base, buffer.Chunks(), policy)
	result.Pages = buffer.Len()
	result.Truncated = truncated

	p.logger.Info().
		Str("endpoint", policy.Name).
		Int("pages", result.Pages).
		Int("items", buffer.ItemCount()).
		Bool("truncated", truncated != nil).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return result, nil
}

func (p *Paginator) fetch(ctx context.Context, params ParameterSet, pageNum int, policy Policy) (PageResult, error) {
	res, err := p.fetcher.FetchPage(ctx, params)
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("endpoint", policy.Name).
			Int("page", pageNum).
			Msg("Page fetch failed")
		return PageResult{}, fmt.Errorf("fetch page %d: %w", pageNum, err)
	}
	pagesFetchedTotal.WithLabelValues(policy.Name).Inc()

	res.Number = pageNum
	if res.Remote != nil {
		res.Remote.Page = pageNum
	}
	return res, nil
}

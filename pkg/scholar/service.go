// Package scholar exposes the Google Scholar retrievals offered through
// SerpApi: organic search results and author profiles with their articles.
package scholar

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/scholar-serp/pkg/logging"
	"github.com/Sternrassler/scholar-serp/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var retrievalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "scholar_retrievals_total",
	Help: "Total retrievals by endpoint policy and outcome",
}, []string{"endpoint", "outcome"})

// OrganicRequest asks for Google Scholar organic results.
type OrganicRequest struct {
	Query    string
	APIKey   string
	Language string

	// Paginate follows every result page instead of returning the first one.
	Paginate bool
}

// AuthorRequest asks for a Google Scholar author profile.
type AuthorRequest struct {
	AuthorID string
	APIKey   string
	Language string

	// ParseArticles keeps the author's articles in the document.
	ParseArticles bool

	// ArticlePagination follows every article page. Only honored together
	// with ParseArticles.
	ArticlePagination bool
}

// Service runs scholar retrievals against a PageFetcher.
type Service struct {
	paginator *pagination.Paginator
	logger    zerolog.Logger
}

// NewService creates a service on top of fetcher.
func NewService(fetcher pagination.PageFetcher, config pagination.Config) *Service {
	return &Service{
		paginator: pagination.NewPaginator(fetcher, config),
		logger:    logging.NewLogger(logging.ComponentScholar),
	}
}

// OrganicResults returns the organic_results list for a query.
//
// In paginated mode a remote error ends the walk and the results gathered
// so far are returned with Result.Truncated set. In single-page mode a remote
// error is returned as *pagination.RemoteError.
func (s *Service) OrganicResults(ctx context.Context, req OrganicRequest) (*pagination.Result, error) {
	if req.APIKey == "" {
		return nil, &ConfigurationError{Param: pagination.ParamAPIKey}
	}
	if req.Query == "" {
		return nil, &ConfigurationError{Param: pagination.ParamQuery}
	}

	params := pagination.ParameterSet{
		APIKey:   req.APIKey,
		Engine:   EngineOrganic,
		Query:    req.Query,
		Language: language(req.Language),
		Extra:    map[string]string{},
	}

	if req.Paginate {
		return s.run(ctx, params.With("start", "0"), PolicyOrganicPaginated, true)
	}
	return s.run(ctx, params, PolicyOrganic, false)
}

// AuthorResults returns an author document.
//
// Without ParseArticles the articles are stripped. With ParseArticles the
// first article page is kept, and with ArticlePagination as well every page
// is followed and the articles are concatenated in page order.
func (s *Service) AuthorResults(ctx context.Context, req AuthorRequest) (*pagination.Result, error) {
	if req.APIKey == "" {
		return nil, &ConfigurationError{Param: pagination.ParamAPIKey}
	}
	if req.AuthorID == "" {
		return nil, &ConfigurationError{Param: pagination.ParamAuthorID}
	}

	params := pagination.ParameterSet{
		APIKey:   req.APIKey,
		Engine:   EngineAuthor,
		AuthorID: req.AuthorID,
		Language: language(req.Language),
		Extra:    map[string]string{},
	}

	switch {
	case req.ParseArticles && req.ArticlePagination:
		params = params.With("start", "0").With("pagesize", authorPageSize)
		return s.run(ctx, params, PolicyAuthorArticlesPaginated, true)
	case req.ParseArticles:
		return s.run(ctx, params, PolicyAuthorArticles, false)
	default:
		return s.run(ctx, params, PolicyAuthorProfile, false)
	}
}

func (s *Service) run(ctx context.Context, params pagination.ParameterSet, policy pagination.Policy, paginate bool) (*pagination.Result, error) {
	start := time.Now()

	var (
		result *pagination.Result
		err    error
	)
	if paginate {
		result, err = s.paginator.FetchAll(ctx, params, policy)
	} else {
		result, err = s.paginator.FetchOne(ctx, params, policy)
	}

	if err != nil {
		var remote *pagination.RemoteError
		outcome := "error"
		if errors.As(err, &remote) {
			outcome = "remote_error"
		}
		retrievalsTotal.WithLabelValues(policy.Name, outcome).Inc()
		return nil, err
	}

	outcome := "ok"
	if result.Truncated != nil {
		outcome = "truncated"
	}
	retrievalsTotal.WithLabelValues(policy.Name, outcome).Inc()

	s.logger.Debug().
		Str("endpoint", policy.Name).
		Int("pages", result.Pages).
		Int("items", len(result.List(policy.ListField))).
		Dur("duration", time.Since(start)).
		Msg("Retrieval complete")

	return result, nil
}

func language(hl string) string {
	if hl == "" {
		return DefaultLanguage
	}
	return hl
}

package scholar

import "github.com/Sternrassler/scholar-serp/pkg/pagination"

// SerpApi engines.
const (
	EngineOrganic = "google_scholar"
	EngineAuthor  = "google_scholar_author"
)

// Response fields holding the list payload.
const (
	FieldOrganicResults = "organic_results"
	FieldArticles       = "articles"
)

// DefaultLanguage is used when a request leaves Language empty.
const DefaultLanguage = "en"

// authorPageSize is the largest article page SerpApi serves.
const authorPageSize = "100"

var volatileKeys = []string{
	pagination.FieldMetadata,
	pagination.FieldParameters,
	pagination.FieldPagination,
}

// Endpoint policies.
var (
	PolicyOrganic = pagination.Policy{
		Name:      "organic",
		ListField: FieldOrganicResults,
		Shape:     pagination.ShapeList,
	}

	PolicyOrganicPaginated = pagination.Policy{
		Name:      "organic.paginated",
		ListField: FieldOrganicResults,
		Shape:     pagination.ShapeList,
	}

	PolicyAuthorProfile = pagination.Policy{
		Name:         "author.profile",
		ListField:    FieldArticles,
		Shape:        pagination.ShapeDocument,
		VolatileKeys: append(append([]string{}, volatileKeys...), FieldArticles),
	}

	PolicyAuthorArticles = pagination.Policy{
		Name:         "author.articles",
		ListField:    FieldArticles,
		Shape:        pagination.ShapeDocument,
		VolatileKeys: volatileKeys,
	}

	// The profile fields (cited_by, co_authors, ...) are only reliable on the
	// first page, so the paginated document is built on it.
	PolicyAuthorArticlesPaginated = pagination.Policy{
		Name:         "author.articles.paginated",
		ListField:    FieldArticles,
		Shape:        pagination.ShapeDocument,
		Base:         pagination.BaseFirstPage,
		VolatileKeys: volatileKeys,
	}
)

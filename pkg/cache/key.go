package cache

import (
	"net/url"

	"github.com/Sternrassler/scholar-serp/pkg/pagination"
)

// CacheKey identifies one cached SerpApi page.
type CacheKey struct {
	// Engine is the SerpApi engine (e.g. "google_scholar_author").
	Engine string

	// QueryParams are the request parameters without the API key.
	QueryParams url.Values
}

// KeyFor builds the cache key of a parameter set.
func KeyFor(params pagination.ParameterSet) CacheKey {
	values := params.CacheKeyValues()
	values.Del(pagination.ParamEngine)
	return CacheKey{
		Engine:      params.Engine,
		QueryParams: values,
	}
}

// String generates a deterministic cache key string.
// Format: serpapi:engine:<url-encoded query, sorted by key>
//
// Example:
//
//	serpapi:google_scholar:hl=en&q=minecraft&start=10
func (k CacheKey) String() string {
	key := "serpapi"
	if k.Engine != "" {
		key += ":" + k.Engine
	}

	values := url.Values{}
	for name, v := range k.QueryParams {
		if name != pagination.ParamAPIKey {
			values[name] = v
		}
	}
	if len(values) > 0 {
		key += ":" + values.Encode()
	}

	return key
}

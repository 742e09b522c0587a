// Package pagination provides the sequential cursor-following engine used to
// retrieve SerpApi result sets that span several pages.
//
// SerpApi embeds the next request inside every response under
// "serpapi_pagination.next" as a URL. The engine decodes that URL's query string,
// merges it into the running ParameterSet and keeps fetching until a page no
// longer carries a "next" entry.
//
// Example usage:
//
//	p := pagination.NewPaginator(serpClient, pagination.DefaultConfig())
//	res, err := p.FetchAll(ctx, params, pagination.Policy{
//		Name:      "organic.paginated",
//		ListField: "organic_results",
//		Shape:     pagination.ShapeList,
//	})
//
// The paginator:
//   - Fetches pages one at a time (the next request depends on the previous page)
//   - Buffers each page's list payload in fetch order
//   - Stops on exhaustion, on the optional MaxPages cap or on a remote error
//   - Returns partial results when a remote error interrupts paginated retrieval
//     (Result.Truncated is set), but fails hard in single-page mode
//   - Strips volatile keys (search_metadata, search_parameters, serpapi_pagination)
//     so single-page and multi-page results have the same shape
package pagination

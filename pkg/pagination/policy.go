package pagination

// Shape selects what a retrieval returns.
type Shape int

const (
	// ShapeList returns the flattened list field only.
	ShapeList Shape = iota

	// ShapeDocument returns the whole document with the list field embedded.
	ShapeDocument
)

// String implements fmt.Stringer.
func (s Shape) String() string {
	switch s {
	case ShapeList:
		return "list"
	case ShapeDocument:
		return "document"
	default:
		return "unknown"
	}
}

// BaseSource selects which fetched page supplies the non-list fields of a
// paginated document.
type BaseSource int

const (
	// BaseFirstPage uses the first successful page.
	BaseFirstPage BaseSource = iota

	// BaseLastPage uses the last successful page.
	BaseLastPage
)

// Policy describes how one endpoint's pages are collected and normalized.
type Policy struct {
	// Name labels logs and metrics (e.g. "author.articles.paginated").
	Name string

	// ListField is the field holding the list payload (e.g. "organic_results").
	ListField string

	// CursorField holds the pagination cursor. Defaults to FieldPagination.
	CursorField string

	// Shape selects list or document output.
	Shape Shape

	// Base selects the page that supplies a paginated document's non-list fields.
	Base BaseSource

	// VolatileKeys are removed from document results.
	VolatileKeys []string
}

func (p Policy) cursorField() string {
	if p.CursorField == "" {
		return FieldPagination
	}
	return p.CursorField
}

// Result is the aggregated outcome of a retrieval.
type Result struct {
	Shape Shape

	// Items holds the flattened list for ShapeList results.
	Items []Item

	// Document holds the normalized document for ShapeDocument results.
	Document Page

	// Pages is the number of pages that contributed items.
	Pages int

	// Truncated is set when a remote error ended paginated retrieval early.
	// The items gathered before the error are still returned.
	Truncated *RemoteError
}

// List returns the result's items regardless of shape.
func (r *Result) List(field string) []Item {
	if r.Shape == ShapeList {
		return r.Items
	}
	items, err := r.Document.List(field)
	if err != nil {
		return nil
	}
	return items
}

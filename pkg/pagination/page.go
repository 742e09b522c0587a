package pagination

import (
	"errors"
	"fmt"
	"maps"
)

// Common errors returned by the engine.
var (
	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")

	// ErrUnexpectedShape is returned when a list field does not hold a list of objects.
	ErrUnexpectedShape = errors.New("unexpected page shape")
)

// Default SerpApi field names.
const (
	FieldError      = "error"
	FieldPagination = "serpapi_pagination"
	FieldMetadata   = "search_metadata"
	FieldParameters = "search_parameters"
	FieldCursorNext = "next"
)

// Item is one opaque result record (a search hit, an article, ...).
type Item = map[string]any

// Page is one decoded response document.
type Page map[string]any

// Clone returns a shallow copy of the page.
func (p Page) Clone() Page {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// List returns the ordered items stored under field.
// A missing or null field yields an empty list.
func (p Page) List(field string) ([]Item, error) {
	raw, ok := p[field]
	if !ok || raw == nil {
		return []Item{}, nil
	}

	switch v := raw.(type) {
	case []Item:
		return v, nil
	case []any:
		items := make([]Item, 0, len(v))
		for i, elem := range v {
			item, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is %T, not an object", ErrUnexpectedShape, field, i, elem)
			}
			items = append(items, item)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, not a list", ErrUnexpectedShape, field, raw)
	}
}

// Cursor returns the pagination object stored under field, if any.
func (p Page) Cursor(field string) (map[string]any, bool) {
	c, ok := p[field].(map[string]any)
	return c, ok
}

// RemoteError is an error reported by the remote service inside a page.
type RemoteError struct {
	// Message is the value of the page's "error" field.
	Message string

	// Page is the 1-based number of the page that carried the error.
	Page int
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error on page %d: %s", e.Page, e.Message)
}

// PageResult is the outcome of fetching one page: either a page or a remote error.
type PageResult struct {
	Number int
	Page   Page
	Remote *RemoteError
}

// Failed reports whether the remote side reported an error for this page.
func (r PageResult) Failed() bool {
	return r.Remote != nil
}

// Success wraps a page that carried no error.
func Success(number int, page Page) PageResult {
	return PageResult{Number: number, Page: page}
}

// Failure wraps a remote error message.
func Failure(number int, message string) PageResult {
	return PageResult{Number: number, Remote: &RemoteError{Message: message, Page: number}}
}

// ClassifyPage turns a decoded page into a PageResult by checking its error field.
func ClassifyPage(number int, page Page) PageResult {
	switch msg := page[FieldError].(type) {
	case nil:
		return Success(number, page)
	case string:
		if msg == "" {
			return Success(number, page)
		}
		return Failure(number, msg)
	default:
		return Failure(number, fmt.Sprint(msg))
	}
}

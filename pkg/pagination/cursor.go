package pagination

import (
	"fmt"
	"net/url"
)

// NextParams extracts the next request's parameters from a page's cursor.
//
// ok is false when the page carries no cursor, the cursor has no "next" entry,
// or "next" is empty. That is the normal end of a paginated retrieval.
// The returned map holds the query-string values of "next" verbatim
// (first value per key) and is meant to be merged into the running set.
func NextParams(page Page, cursorField string) (next map[string]string, ok bool, err error) {
	cursor, found := page.Cursor(cursorField)
	if !found {
		return nil, false, nil
	}

	raw, _ := cursor[FieldCursorNext].(string)
	if raw == "" {
		return nil, false, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	next = make(map[string]string, len(query))
	for k, values := range query {
		if len(values) > 0 {
			next[k] = values[0]
		}
	}
	return next, true, nil
}

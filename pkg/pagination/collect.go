package pagination

// FragmentBuffer accumulates one chunk of items per fetched page, in fetch order.
type FragmentBuffer struct {
	chunks [][]Item
	total  int
}

// Append adds the chunk of the next page.
func (b *FragmentBuffer) Append(chunk []Item) {
	b.chunks = append(b.chunks, chunk)
	b.total += len(chunk)
}

// Chunks returns the buffered chunks in fetch order.
func (b *FragmentBuffer) Chunks() [][]Item {
	return b.chunks
}

// Len returns the number of buffered chunks.
func (b *FragmentBuffer) Len() int {
	return len(b.chunks)
}

// ItemCount returns the number of items across all chunks.
func (b *FragmentBuffer) ItemCount() int {
	return b.total
}

// Collect returns the list payload of a fetched page.
// For a failed page it returns the page's *RemoteError and no items.
func Collect(result PageResult, field string) ([]Item, error) {
	if result.Failed() {
		return nil, result.Remote
	}
	return result.Page.List(field)
}

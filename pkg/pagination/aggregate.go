package pagination

// Flatten concatenates fragments, keeping chunk order and the order inside each chunk.
func Flatten(fragments [][]Item) []Item {
	n := 0
	for _, chunk := range fragments {
		n += len(chunk)
	}

	out := make([]Item, 0, n)
	for _, chunk := range fragments {
		out = append(out, chunk...)
	}
	return out
}

// Normalize returns a copy of doc without the given keys.
// Keys that are already absent are ignored, so Normalize is idempotent.
func Normalize(doc Page, keys []string) Page {
	out := doc.Clone()
	if out == nil {
		out = Page{}
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Finalize merges the buffered fragments into the shape the policy asks for.
//
// For ShapeList the flattened items are returned. For ShapeDocument the base
// page is copied, its list field is replaced by the flattened items and the
// policy's volatile keys are stripped. A nil base (no page succeeded) yields a
// document holding only an empty list.
func Finalize(base Page, fragments [][]Item, policy Policy) *Result {
	items := Flatten(fragments)

	if policy.Shape == ShapeList {
		return &Result{Shape: ShapeList, Items: items}
	}

	doc := base.Clone()
	if doc == nil {
		doc = Page{}
	}
	doc[policy.ListField] = items
	return &Result{Shape: ShapeDocument, Document: Normalize(doc, policy.VolatileKeys)}
}

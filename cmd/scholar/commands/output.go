package commands

import (
	"io"

	"github.com/Sternrassler/scholar-serp/pkg/export"
	"github.com/Sternrassler/scholar-serp/pkg/pagination"
)

// output is what a command produced.
type output struct {
	// items feed the table view and the CSV file.
	items []map[string]any

	// columns for the table view; nil means every key.
	columns []string

	// doc is written for JSON output; items are used when nil.
	doc any
}

func toMaps(items []pagination.Item) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func (a *app) emit(w io.Writer, out output) error {
	doc := out.doc
	if doc == nil {
		doc = out.items
	}

	if a.opts.csvPath != "" {
		if err := export.SaveCSV(a.opts.csvPath, out.items, nil); err != nil {
			return err
		}
		a.logger.Info().Str("path", a.opts.csvPath).Int("rows", len(out.items)).Msg("Saved CSV")
	}
	if a.opts.jsonPath != "" {
		if err := export.SaveJSON(a.opts.jsonPath, doc); err != nil {
			return err
		}
		a.logger.Info().Str("path", a.opts.jsonPath).Msg("Saved JSON")
	}

	if a.opts.format == "json" {
		return export.WriteJSON(w, doc)
	}
	return export.WriteTable(w, out.items, out.columns)
}

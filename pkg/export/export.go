// Package export writes result items as CSV, JSON, or terminal tables.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Columns returns the union of item keys in sorted order.
func Columns(items []map[string]any) []string {
	seen := map[string]struct{}{}
	for _, item := range items {
		for k := range item {
			seen[k] = struct{}{}
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// WriteCSV writes items as CSV with a header row. When columns is empty the
// sorted union of keys is used. Missing and nil values are empty cells;
// nested values are JSON-encoded.
func WriteCSV(w io.Writer, items []map[string]any, columns []string) error {
	out := newTable(items, columns).RenderCSV()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteTable renders items as a boxed table for terminals.
func WriteTable(w io.Writer, items []map[string]any, columns []string) error {
	t := newTable(items, columns)
	t.SetStyle(table.StyleLight)
	t.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(items))})

	if _, err := io.WriteString(w, t.Render()+"\n"); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	return nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// SaveCSV writes items to path as CSV.
func SaveCSV(path string, items []map[string]any, columns []string) error {
	return save(path, func(w io.Writer) error { return WriteCSV(w, items, columns) })
}

// SaveJSON writes v to path as JSON.
func SaveJSON(path string, v any) error {
	return save(path, func(w io.Writer) error { return WriteJSON(w, v) })
}

func save(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func newTable(items []map[string]any, columns []string) table.Writer {
	if len(columns) == 0 {
		columns = Columns(items)
	}

	t := table.NewWriter()

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, item := range items {
		row := make(table.Row, len(columns))
		for i, c := range columns {
			row[i] = cell(item[c])
		}
		t.AppendRow(row)
	}

	return t
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

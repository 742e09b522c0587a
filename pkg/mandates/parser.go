package mandates

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Column names as exported.
const (
	ColumnFunder = "funder"
	ColumnLink   = "link"
	Column2019   = "2019"
	Column2020   = "2020"
	Column2021   = "2021"
)

// Columns is the export order of a Row.
var Columns = []string{ColumnFunder, ColumnLink, Column2019, Column2020, Column2021}

// Row is one funder on the mandates leaderboard. Nil means the cell was
// missing or held a placeholder.
type Row struct {
	Funder   *string `json:"funder"`
	Link     *string `json:"link"`
	Year2019 *string `json:"2019"`
	Year2020 *string `json:"2020"`
	Year2021 *string `json:"2021"`
}

// Item renders the row as a generic record keyed by column name.
func (r Row) Item() map[string]any {
	out := make(map[string]any, len(Columns))
	for col, v := range map[string]*string{
		ColumnFunder: r.Funder,
		ColumnLink:   r.Link,
		Column2019:   r.Year2019,
		Column2020:   r.Year2020,
		Column2021:   r.Year2021,
	} {
		if v == nil {
			out[col] = nil
			continue
		}
		out[col] = *v
	}
	return out
}

// funderSuffix matches the "  - cached" style tail Scholar appends to names.
var funderSuffix = regexp.MustCompile(`(\s\s-.*)`)

// ParseHTML parses a rendered leaderboard page.
func ParseHTML(r io.Reader) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse leaderboard html: %w", err)
	}
	return Parse(doc), nil
}

// Parse extracts one Row per table row that has data cells.
// A cell that is missing or contains "-" yields nil; parsing never fails.
func Parse(doc *goquery.Document) []Row {
	rows := []Row{}

	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td").Length() == 0 {
			return
		}

		var row Row

		if cell := tr.Find("td.gsc_mlt_t").First(); cell.Length() > 0 {
			funder := funderSuffix.ReplaceAllString(cell.Text(), "")
			row.Funder = &funder
		}

		if href, ok := tr.Find(".gsc_mlt_t a").First().Attr("href"); ok {
			row.Link = &href
		}

		row.Year2019 = yearCell(tr, 4)
		row.Year2020 = yearCell(tr, 5)
		row.Year2021 = yearCell(tr, 6)

		rows = append(rows, row)
	})

	return rows
}

func yearCell(tr *goquery.Selection, n int) *string {
	cell := tr.Find(fmt.Sprintf("td:nth-child(%d)", n)).First()
	if cell.Length() == 0 {
		return nil
	}
	text := cell.Text()
	if strings.Contains(text, "-") {
		return nil
	}
	return &text
}

package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vtop-backend/lib/htmlutil"
	"vtop-backend/lib/textutil"
	"vtop-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
)

var ErrMissingTable = errors.New("report table not found")

// rows returns the direct rows of table, rows of nested tables are excluded.
func rows(table *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	table.Children().Each(func(_ int, section *goquery.Selection) {
		if goquery.NodeName(section) == "tr" {
			out = append(out, section)
			return
		}
		section.ChildrenFiltered("tr").Each(func(_ int, row *goquery.Selection) {
			out = append(out, row)
		})
	})
	return out
}

func cells(row *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	row.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, cell)
	})
	return out
}

func cellText(cell *goquery.Selection) string {
	return htmlutil.Text(cell)
}

// columns holds the normalized header labels of a table in order.
type columns []string

func readColumns(header *goquery.Selection) columns {
	var out columns
	for _, cell := range cells(header) {
		out = append(out, textutil.NormalizeName(cellText(cell)))
	}
	return out
}

// index finds the column of the first name that matches a header exactly,
// then falls back to the first header that contains one of the names.
func (c columns) index(names ...string) int {
	for _, name := range names {
		name = textutil.NormalizeName(name)
		for idx, key := range c {
			if key == name {
				return idx
			}
		}
	}
	for _, name := range names {
		name = textutil.NormalizeName(name)
		for idx, key := range c {
			if strings.Contains(key, name) {
				return idx
			}
		}
	}
	return -1
}

func (c columns) cell(row []*goquery.Selection, names ...string) *goquery.Selection {
	idx := c.index(names...)
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func (c columns) text(row []*goquery.Selection, names ...string) string {
	cell := c.cell(row, names...)
	if cell == nil {
		return ""
	}
	return cellText(cell)
}

// findTable returns the first table matched by any of the selectors.
func findTable(doc *goquery.Document, selectors ...string) (*goquery.Selection, error) {
	for _, selector := range selectors {
		table := doc.Find(selector).First()
		if table.Length() > 0 {
			return table, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingTable, strings.Join(selectors, ", "))
}

// parseNumber reads numbers the way the portal prints them, "-" and empty
// cells are zero.
func parseNumber(text string) float64 {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "%"))
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0
	}
	return value
}

func parseInt(text string) int {
	return int(parseNumber(text))
}

var dateLayouts = []string{
	"02-Jan-2006",
	"2-Jan-2006",
	"02/01/2006",
	"2006-01-02",
}

// parseDate interprets a portal date in IST.
func parseDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		date, err := time.ParseInLocation(layout, text, timezone.Location)
		if err == nil {
			return date, true
		}
	}
	return time.Time{}, false
}

// splitDash splits "A - B - C" into its trimmed parts.
func splitDash(text string) []string {
	parts := strings.Split(text, " - ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package htmltable extracts tabular data from HTML documents and selects
// the table most likely to hold the page's primary dataset.
package htmltable

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// ErrNoTableFound is returned when a document contains zero parseable tables.
var ErrNoTableFound = eris.New("htmltable: no table found in document")

// Table is an ordered sequence of rows of cell strings. Rows may be ragged;
// ColCount is the maximum width across rows.
type Table struct {
	Rows [][]string
}

// RowCount returns the number of rows.
func (t Table) RowCount() int { return len(t.Rows) }

// ColCount returns the maximum column count across all rows.
func (t Table) ColCount() int {
	max := 0
	for _, row := range t.Rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// CellCount scores the table by rows x columns.
func (t Table) CellCount() int { return t.RowCount() * t.ColCount() }

// Padded returns the rows padded with empty strings to a uniform width, so
// ragged source tables present missing cells as "" rather than shorter rows.
func (t Table) Padded() [][]string {
	width := t.ColCount()
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

// Cell returns the cell at (row, col), or "" when the row is shorter.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// ExtractTables parses the document and returns every table in document
// order. Nested tables are returned as their own entries; a nested table's
// rows are not double-counted in its parent.
func ExtractTables(r io.Reader) ([]Table, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "htmltable: parse document")
	}

	var tables []Table
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, parseTable(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables, nil
}

// SelectLargest returns the single largest table in the document, scored by
// rows x columns. Ties are broken by document order (first wins).
func SelectLargest(htmlContent string) (Table, error) {
	tables, err := ExtractTables(strings.NewReader(htmlContent))
	if err != nil {
		return Table{}, err
	}
	if len(tables) == 0 {
		return Table{}, ErrNoTableFound
	}

	best := tables[0]
	for _, t := range tables[1:] {
		if t.CellCount() > best.CellCount() {
			best = t
		}
	}
	return best, nil
}

// parseTable collects the rows belonging directly to the given table node,
// stopping at nested table boundaries so inner tables stay independent.
func parseTable(table *html.Node) Table {
	var t Table

	var findRows func(n *html.Node)
	findRows = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table":
				if n != table {
					return
				}
			case "tr":
				t.Rows = append(t.Rows, parseRow(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findRows(c)
		}
	}
	findRows(table)
	return t
}

// parseRow collects td/th cells directly under a tr, again stopping at
// nested tables.
func parseRow(tr *html.Node) []string {
	var cells []string

	var findCells func(n *html.Node)
	findCells = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "table":
				return
			case "td", "th":
				cells = append(cells, cellText(n))
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findCells(c)
		}
	}
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		findCells(c)
	}
	return cells
}

// cellText returns the whitespace-collapsed text content of a cell,
// excluding any nested table content.
func cellText(n *html.Node) string {
	var b strings.Builder

	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	return strings.Join(strings.Fields(b.String()), " ")
}

package htmltable

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectLargest_PicksMaxCellCount(t *testing.T) {
	doc := `<html><body>
		<table id="nav"><tr><td>Home</td><td>About</td></tr></table>
		<table id="data">
			<tr><th>Rank</th><th>School</th><th>Suburb</th></tr>
			<tr><td>1</td><td>Melbourne High School</td><td>South Yarra</td></tr>
			<tr><td>2</td><td>Mac.Robertson Girls High School</td><td>Melbourne</td></tr>
		</table>
	</body></html>`

	table, err := SelectLargest(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, 3, table.ColCount())
	assert.Equal(t, "Melbourne High School", table.Cell(1, 1))
}

func TestSelectLargest_TieBrokenByDocumentOrder(t *testing.T) {
	doc := `<html><body>
		<table><tr><td>first</td><td>a</td></tr><tr><td>b</td><td>c</td></tr></table>
		<table><tr><td>second</td><td>a</td></tr><tr><td>b</td><td>c</td></tr></table>
	</body></html>`

	table, err := SelectLargest(doc)
	require.NoError(t, err)
	assert.Equal(t, "first", table.Cell(0, 0))
}

func TestSelectLargest_NoTables(t *testing.T) {
	_, err := SelectLargest(`<html><body><p>nothing tabular here</p></body></html>`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoTableFound))
}

func TestSelectLargest_RaggedRows(t *testing.T) {
	doc := `<table>
		<tr><td>a</td><td>b</td><td>c</td></tr>
		<tr><td>d</td></tr>
	</table>`

	table, err := SelectLargest(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, table.RowCount())
	assert.Equal(t, 3, table.ColCount())
	assert.Equal(t, 6, table.CellCount())

	padded := table.Padded()
	assert.Equal(t, []string{"d", "", ""}, padded[1])
	assert.Equal(t, "", table.Cell(1, 2))
}

func TestSelectLargest_RaggedBeatsSmaller(t *testing.T) {
	// 2x3 ragged table (6 cells) must outrank a 2x2 table (4 cells).
	doc := `<body>
		<table><tr><td>x</td><td>y</td></tr><tr><td>z</td><td>w</td></tr></table>
		<table><tr><td>a</td><td>b</td><td>c</td></tr><tr><td>d</td></tr></table>
	</body>`

	table, err := SelectLargest(doc)
	require.NoError(t, err)
	assert.Equal(t, "a", table.Cell(0, 0))
}

func TestExtractTables_NestedTablesIndependent(t *testing.T) {
	doc := `<table>
		<tr><td>outer<table><tr><td>inner1</td></tr><tr><td>inner2</td></tr></table></td></tr>
	</table>`

	tables, err := ExtractTables(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, 1, tables[0].RowCount())
	assert.Equal(t, "outer", tables[0].Cell(0, 0))
	assert.Equal(t, 2, tables[1].RowCount())
	assert.Equal(t, "inner1", tables[1].Cell(0, 0))
}

func TestExtractTables_HeaderCellsAndWhitespace(t *testing.T) {
	doc := "<table><tr><th>  Station\n Name </th><th>Lines</th></tr></table>"

	tables, err := ExtractTables(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Station Name", "Lines"}, tables[0].Rows[0])
}

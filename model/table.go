package model

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StructuredKind tags the canonical shape of a table's cleaned cell grid.
// The set is closed: downstream code switches exhaustively on it instead of
// probing for fields.
type StructuredKind string

const (
	KindEmpty        StructuredKind = "empty"
	KindKeyValue     StructuredKind = "key_value"
	KindHeaderedGrid StructuredKind = "headered_grid"
	KindSingleRow    StructuredKind = "single_row"
)

// KeyValue is one pair of a two-column table.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StructuredData is the classified form of a table's cleaned grid. Exactly
// one payload is populated, matching Kind.
type StructuredData struct {
	Kind    StructuredKind `json:"type"`
	Pairs   []KeyValue     `json:"pairs,omitempty"`
	Headers []string       `json:"headers,omitempty"`
	Rows    [][]string     `json:"rows,omitempty"`
	Cells   []string       `json:"cells,omitempty"`
}

// Classify derives the structured form of a cleaned cell grid. It is a pure
// function of the grid shape: a grid whose widest row has exactly two cells
// becomes key/value pairs, otherwise multiple rows become a headered grid
// and a single row stays a single row.
func Classify(grid [][]string) StructuredData {
	if len(grid) == 0 {
		return StructuredData{Kind: KindEmpty}
	}

	maxCols := 0
	for _, row := range grid {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	if maxCols == 0 {
		return StructuredData{Kind: KindEmpty}
	}

	if maxCols == 2 {
		pairs := make([]KeyValue, 0, len(grid))
		for _, row := range grid {
			switch {
			case len(row) >= 2:
				pairs = append(pairs, KeyValue{Key: row[0], Value: row[1]})
			case len(row) == 1:
				pairs = append(pairs, KeyValue{Key: row[0]})
			}
		}
		return StructuredData{Kind: KindKeyValue, Pairs: pairs}
	}

	if len(grid) > 1 {
		return StructuredData{
			Kind:    KindHeaderedGrid,
			Headers: grid[0],
			Rows:    grid[1:],
		}
	}

	return StructuredData{Kind: KindSingleRow, Cells: grid[0]}
}

// Matches reports whether the structured data's kind is consistent with the
// given cleaned grid. Used by Document.Validate.
func (s StructuredData) Matches(grid [][]string) bool {
	return Classify(grid).Kind == s.Kind
}

// Cell is one cell of a table's raw grid, positioned by row and column index.
type Cell struct {
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	Text    string    `json:"text"`
	BBox    []float64 `json:"bbox"`
	RowSpan int       `json:"rowspan,omitempty"`
	ColSpan int       `json:"colspan,omitempty"`
}

// Table is a detected tabular region: its geometry, raster artifact, raw
// cell grid and classified structure.
type Table struct {
	ID         string         `json:"id"`
	BBox       []float64      `json:"bbox"`
	Caption    *string        `json:"caption"`
	ImagePath  string         `json:"image_path"`
	Image      []byte         `json:"image_data,omitempty"`
	Cells      []Cell         `json:"cells"`
	RawData    [][]string     `json:"raw_data"`
	Structured StructuredData `json:"structured_data"`
}

// Bounds returns the table's bounding box.
func (t *Table) Bounds() BBox {
	return BBoxFromCoords(t.BBox)
}

// RowCount returns the number of rows in the raw grid.
func (t *Table) RowCount() int {
	return len(t.RawData)
}

// ColCount returns the width of the widest raw row.
func (t *Table) ColCount() int {
	cols := 0
	for _, row := range t.RawData {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols
}

// ToMarkdown converts the raw grid to markdown format.
func (t *Table) ToMarkdown() string {
	if len(t.RawData) == 0 {
		return ""
	}

	var sb strings.Builder

	writeRow := func(row []string) {
		for _, cell := range row {
			sb.WriteString("| ")
			sb.WriteString(strings.ReplaceAll(cell, "\n", " "))
			sb.WriteString(" ")
		}
		sb.WriteString("|\n")
	}

	writeRow(t.RawData[0])
	for range t.RawData[0] {
		sb.WriteString("|---")
	}
	sb.WriteString("|\n")
	for _, row := range t.RawData[1:] {
		writeRow(row)
	}

	return sb.String()
}

// ToCSV converts the raw grid to CSV format.
func (t *Table) ToCSV() string {
	var sb strings.Builder
	for _, row := range t.RawData {
		for j, cell := range row {
			text := cell
			if strings.ContainsAny(text, ",\"\n") {
				text = "\"" + strings.ReplaceAll(text, "\"", "\"\"") + "\""
			}
			sb.WriteString(text)
			if j < len(row)-1 {
				sb.WriteString(",")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToASCII renders the raw grid as a bordered text table. Column widths are
// computed with display-width awareness so wide (CJK) cells align.
func (t *Table) ToASCII() string {
	if len(t.RawData) == 0 {
		return ""
	}

	cols := t.ColCount()
	widths := make([]int, cols)
	for _, row := range t.RawData {
		for j, cell := range row {
			for _, line := range strings.Split(cell, "\n") {
				if w := runewidth.StringWidth(line); w > widths[j] {
					widths[j] = w
				}
			}
		}
	}

	var sb strings.Builder
	rule := func() {
		for _, w := range widths {
			sb.WriteString("+")
			sb.WriteString(strings.Repeat("-", w+2))
		}
		sb.WriteString("+\n")
	}

	rule()
	for _, row := range t.RawData {
		for j := 0; j < cols; j++ {
			text := ""
			if j < len(row) {
				text = strings.ReplaceAll(row[j], "\n", " ")
			}
			sb.WriteString("| ")
			sb.WriteString(runewidth.FillRight(text, widths[j]))
			sb.WriteString(" ")
		}
		sb.WriteString("|\n")
		rule()
	}

	return sb.String()
}

package domain

// Cell is a single scalar value read from a sheet. Null marks a cell the reader
// reported as empty.
type Cell struct {
	Value string
	Null  bool
}

// Row is an ordered sequence of cells.
type Row []Cell

// Sheet is a named grid of rows, the RawTable of one sheet.
type Sheet struct {
	Name string
	Rows []Row
}

// Workbook is a tabular source: a sequence of named sheets in workbook order.
type Workbook struct {
	Name   string
	Sheets []Sheet
}

// ExtractedRow holds the non-null values of a captured row. It is never empty.
type ExtractedRow []string

// ExtractedDataset holds the captured rows of one source document, in sheet
// then row order.
type ExtractedDataset []ExtractedRow

// TextCell builds a non-null cell.
func TextCell(v string) Cell {
	return Cell{Value: v}
}

// NullCell builds an empty cell.
func NullCell() Cell {
	return Cell{Null: true}
}

// NewRow builds a row from raw values, treating empty strings as null cells.
func NewRow(values ...string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		if v == "" {
			row[i] = NullCell()
			continue
		}
		row[i] = TextCell(v)
	}
	return row
}

// RowCount returns the total number of rows across all sheets.
func (w *Workbook) RowCount() int {
	n := 0
	for _, s := range w.Sheets {
		n += len(s.Rows)
	}
	return n
}

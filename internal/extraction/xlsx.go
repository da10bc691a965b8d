package extraction

import (
	"fmt"
	"path/filepath"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/tsawler/tabula/xlsx"
)

// XLSXReader reads spreadsheet workbooks from disk.
type XLSXReader struct{}

// NewXLSXReader creates a spreadsheet reader
func NewXLSXReader() *XLSXReader {
	return &XLSXReader{}
}

// ReadWorkbook loads every sheet of the workbook at path. Cells the reader
// reports as empty become null cells.
func (r *XLSXReader) ReadWorkbook(path string) (wb domain.Workbook, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			wb = domain.Workbook{}
			err = domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("%s: %v", filepath.Base(path), rec))
		}
	}()

	reader, err := xlsx.Open(path)
	if err != nil {
		return domain.Workbook{}, domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("%s: %w", filepath.Base(path), err))
	}
	defer reader.Close()

	wb = domain.Workbook{Name: filepath.Base(path)}
	names := reader.SheetNames()
	for i := 0; i < reader.SheetCount(); i++ {
		sheet, err := reader.Sheet(i)
		if err != nil {
			return domain.Workbook{}, domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("sheet %d: %w", i, err))
		}

		name := sheet.Name
		if name == "" && i < len(names) {
			name = names[i]
		}

		out := domain.Sheet{Name: name, Rows: make([]domain.Row, 0, len(sheet.Rows))}
		for _, cells := range sheet.Rows {
			row := make(domain.Row, 0, len(cells))
			for j := range cells {
				if cells[j].IsEmpty() {
					row = append(row, domain.NullCell())
					continue
				}
				row = append(row, domain.TextCell(cells[j].Value))
			}
			out.Rows = append(out.Rows, row)
		}
		wb.Sheets = append(wb.Sheets, out)
	}

	return wb, nil
}

// ExtractFile reads the workbook at path and runs the marker scan over it.
// Read failures come back as an empty dataset with ErrUnreadableDocument.
func (r *XLSXReader) ExtractFile(path string) (domain.ExtractedDataset, error) {
	wb, err := r.ReadWorkbook(path)
	if err != nil {
		return domain.ExtractedDataset{}, err
	}
	return Extract(wb), nil
}

// Package extraction turns hand-filled log workbooks into the rows an operator
// entered below the "additional notes:" marker.
package extraction

import (
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/domain"
)

// Marker is the lowercased text that starts the captured section of a sheet.
const Marker = "additional notes:"

type scanState int

const (
	seeking scanState = iota
	capturing
)

// Extract scans every sheet in workbook order and returns the rows that follow
// the first marker row of each sheet, with null cells removed. The marker row
// itself is never returned and rows left empty after filtering are dropped.
func Extract(wb domain.Workbook) domain.ExtractedDataset {
	dataset := domain.ExtractedDataset{}
	for _, sheet := range wb.Sheets {
		dataset = append(dataset, extractSheet(sheet)...)
	}
	return dataset
}

func extractSheet(sheet domain.Sheet) []domain.ExtractedRow {
	var rows []domain.ExtractedRow
	state := seeking

	for _, row := range sheet.Rows {
		switch state {
		case seeking:
			if containsMarker(row) {
				state = capturing
			}
		case capturing:
			if values := nonNull(row); len(values) > 0 {
				rows = append(rows, values)
			}
		}
	}

	return rows
}

func containsMarker(row domain.Row) bool {
	for _, cell := range row {
		if cell.Null {
			continue
		}
		if strings.Contains(strings.ToLower(cell.Value), Marker) {
			return true
		}
	}
	return false
}

func nonNull(row domain.Row) domain.ExtractedRow {
	var values domain.ExtractedRow
	for _, cell := range row {
		if cell.Null {
			continue
		}
		values = append(values, cell.Value)
	}
	return values
}

// Flatten renders a dataset as text: cells joined by " | ", rows by newlines.
func Flatten(dataset domain.ExtractedDataset) string {
	lines := make([]string, 0, len(dataset))
	for _, row := range dataset {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

var sheetNameReplacer = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "[", "_", "]", "_", ":", "_", "?", "_",
)

// maxSheetName is the longest sheet name spreadsheet applications accept.
const maxSheetName = 31

// SafeSheetName makes s usable as a sheet name.
func SafeSheetName(s string) string {
	s = sheetNameReplacer.Replace(s)
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}

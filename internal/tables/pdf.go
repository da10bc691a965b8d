// Package tables converts tabular PDF documents into workbook form so the
// marker scan can run over them like any spreadsheet.
package tables

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/extraction"
	"github.com/cloo-solutions/shiftlog/internal/telemetry"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"
)

// Detector finds tables on a page.
type Detector interface {
	Detect(page *model.Page) ([]*model.Table, error)
}

// PDFExtractor reads tables out of PDF files.
type PDFExtractor struct {
	detector  Detector
	preflight bool
	logger    *slog.Logger
}

// Option configures a PDFExtractor
type Option func(*PDFExtractor)

// WithDetector overrides the table detector.
func WithDetector(d Detector) Option {
	return func(e *PDFExtractor) { e.detector = d }
}

// WithoutPreflight skips structural validation before parsing.
func WithoutPreflight() Option {
	return func(e *PDFExtractor) { e.preflight = false }
}

// NewPDFExtractor creates an extractor backed by the geometric table detector.
func NewPDFExtractor(logger *slog.Logger, opts ...Option) *PDFExtractor {
	e := &PDFExtractor{
		detector:  defaultDetector(),
		preflight: true,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultDetector() Detector {
	if d := tables.GetDetector("geometric"); d != nil {
		return d
	}
	return tables.NewGeometricDetector()
}

// ExtractWorkbook returns one sheet per detected table, in page order. A PDF
// that parses but holds no tables returns domain.ErrNoTablesFound.
func (e *PDFExtractor) ExtractWorkbook(ctx context.Context, path string) (wb domain.Workbook, err error) {
	ctx, span := telemetry.StartSpan(ctx, "tables.ExtractWorkbook", telemetry.SpanAttributes{
		Filename:  filepath.Base(path),
		Operation: "extract_tables",
	})
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			wb = domain.Workbook{}
			err = domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("%s: %v", filepath.Base(path), rec))
		}
		if err != nil && !errors.Is(err, domain.ErrNoTablesFound) {
			span.SetError(err)
		}
	}()

	if e.preflight {
		if err := Preflight(path); err != nil {
			return domain.Workbook{}, err
		}
	}

	r, err := reader.Open(path)
	if err != nil {
		return domain.Workbook{}, domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("open %s: %w", filepath.Base(path), err))
	}
	defer r.Close()

	pageCount, err := r.PageCount()
	if err != nil {
		return domain.Workbook{}, domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("page count: %w", err))
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	wb = domain.Workbook{Name: filepath.Base(path)}

	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return domain.Workbook{}, err
		}

		page, err := r.GetPage(i)
		if err != nil {
			return domain.Workbook{}, domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("page %d: %w", i+1, err))
		}
		fragments, err := r.ExtractTextFragments(page)
		if err != nil {
			e.logger.Warn("skipping unreadable page", "file", wb.Name, "page", i+1, "error", err)
			continue
		}
		if len(fragments) == 0 {
			continue
		}

		width, _ := page.Width()
		height, _ := page.Height()
		modelPage := toModelPage(i+1, width, height, fragments)

		found, err := e.detector.Detect(modelPage)
		if err != nil {
			e.logger.Warn("table detection failed", "file", wb.Name, "page", i+1, "error", err)
			continue
		}
		for t, table := range found {
			name := extraction.SafeSheetName(fmt.Sprintf("%s_p%d_t%d", stem, i+1, t+1))
			wb.Sheets = append(wb.Sheets, tableToSheet(name, table))
		}
	}

	if len(wb.Sheets) == 0 {
		return domain.Workbook{}, domain.Wrap(domain.ErrNoTablesFound, fmt.Errorf("%s", wb.Name))
	}

	e.logger.Info("extracted tables", "file", wb.Name, "pages", pageCount, "tables", len(wb.Sheets))
	return wb, nil
}

// Preflight validates the PDF structure before any table parsing.
func Preflight(path string) error {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	if err := api.ValidateFile(path, conf); err != nil {
		return domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("validate %s: %w", filepath.Base(path), err))
	}

	n, err := api.PageCountFile(path)
	if err != nil {
		return domain.Wrap(domain.ErrUnreadableDocument, fmt.Errorf("page count %s: %w", filepath.Base(path), err))
	}
	if n == 0 {
		return domain.Wrap(domain.ErrNoTablesFound, fmt.Errorf("%s has no pages", filepath.Base(path)))
	}
	return nil
}

func toModelPage(number int, width, height float64, fragments []text.TextFragment) *model.Page {
	page := model.NewPage(width, height)
	page.Number = number
	for _, f := range fragments {
		page.RawText = append(page.RawText, model.TextFragment{
			Text:     f.Text,
			BBox:     model.NewBBox(f.X, f.Y, f.Width, f.Height),
			FontSize: f.FontSize,
			FontName: f.FontName,
		})
	}
	return page
}

func tableToSheet(name string, table *model.Table) domain.Sheet {
	sheet := domain.Sheet{Name: name, Rows: make([]domain.Row, 0, len(table.Rows))}
	for _, cells := range table.Rows {
		row := make(domain.Row, 0, len(cells))
		for _, c := range cells {
			v := strings.TrimSpace(c.Text)
			if v == "" {
				row = append(row, domain.NullCell())
				continue
			}
			row = append(row, domain.TextCell(v))
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

package service

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
)

// SourceFile is a file on local disk waiting to be ingested. Name is the
// filename reported to users, which may differ from the spooled path.
type SourceFile struct {
	Path string
	Name string
}

// NewSourceFile uses the base of path as the display name.
func NewSourceFile(path string) SourceFile {
	return SourceFile{Path: path, Name: filepath.Base(path)}
}

// WorkbookReader reads a spreadsheet into rows.
type WorkbookReader interface {
	ReadWorkbook(path string) (domain.Workbook, error)
}

// TableExtractor converts the tables of a document into a workbook.
type TableExtractor interface {
	ExtractWorkbook(ctx context.Context, path string) (domain.Workbook, error)
}

// UnitChunker splits flattened content into text units.
type UnitChunker interface {
	Chunk(content string, base domain.UnitMetadata) []domain.TextUnit
}

// DocumentIndex is the write side of the index manager.
type DocumentIndex interface {
	Ready() bool
	EnsureReady(ctx context.Context) error
	AddDocuments(ctx context.Context, units []domain.TextUnit) error
}

// FileStore keeps original uploads under a generated name.
type FileStore interface {
	Save(ctx context.Context, localPath, filename string) (string, error)
}

// IngestionService turns source files into indexed text units.
type IngestionService struct {
	sheets  WorkbookReader
	tables  TableExtractor
	chunker UnitChunker
	index   DocumentIndex
	store   FileStore
	logger  *slog.Logger
}

// NewIngestionService wires the pipeline. store may be nil, in which case
// originals are not kept.
func NewIngestionService(sheets WorkbookReader, tables TableExtractor, chunker UnitChunker, index DocumentIndex, store FileStore, logger *slog.Logger) *IngestionService {
	return &IngestionService{
		sheets:  sheets,
		tables:  tables,
		chunker: chunker,
		index:   index,
		store:   store,
		logger:  logger.With("component", "ingestion"),
	}
}

// IngestFiles processes files sequentially in the given order. Unsupported
// files and files beyond maxFiles are counted as skipped; maxFiles <= 0
// means no cap. One file failing never stops the batch.
func (s *IngestionService) IngestFiles(ctx context.Context, files []SourceFile, maxFiles int) *domain.BatchIngestionReport {
	report := domain.NewBatchIngestionReport()

	supported, unsupported := partitionSupported(files)
	report.Skip(len(unsupported))
	for _, f := range unsupported {
		s.logger.Info("skipping unsupported file", "filename", f.Name)
	}

	if maxFiles > 0 && len(supported) > maxFiles {
		s.logger.Info("file cap reached, skipping remaining files", "max_files", maxFiles, "skipped", len(supported)-maxFiles)
		report.Skip(len(supported) - maxFiles)
		supported = supported[:maxFiles]
	}

	if len(supported) > 0 {
		s.ensureIndex(ctx)
	}

	for _, f := range supported {
		report.Record(s.ingestOne(ctx, f))
	}

	report.Finalize()
	s.logger.Info("batch ingested",
		"files", report.TotalFilesProcessed,
		"successful", report.SuccessfulFiles,
		"failed", report.FailedFiles,
		"skipped", report.ProcessingSummary.Skipped,
		"documents", report.TotalDocumentsProcessed,
	)
	return report
}

// IngestSpreadsheet ingests a single spreadsheet.
func (s *IngestionService) IngestSpreadsheet(ctx context.Context, f SourceFile) (*domain.IngestionResult, error) {
	kind, ok := domain.KindFromFilename(f.Name)
	if !ok || kind != domain.FileKindExcel {
		return nil, domain.Wrap(domain.ErrUnsupportedFileType, fmt.Errorf("%s: only .xlsx and .xls files are accepted", f.Name))
	}

	s.ensureIndex(ctx)
	res := s.ingestOne(ctx, f)
	return &res, nil
}

// ensureIndex retries provisioning so an index that was down at startup is
// picked up once it comes back.
func (s *IngestionService) ensureIndex(ctx context.Context) {
	if s.index.Ready() {
		return
	}
	if err := s.index.EnsureReady(ctx); err != nil {
		s.logger.Warn("vector index not ready", "error", err)
	}
}

func (s *IngestionService) ingestOne(ctx context.Context, f SourceFile) domain.IngestionResult {
	kind, _ := domain.KindFromFilename(f.Name)

	ctx, span := telemetry.StartSpan(ctx, "ingest.file", telemetry.SpanAttributes{
		Filename:  f.Name,
		Operation: string(kind),
	})
	defer span.End()
	telemetry.AddBreadcrumb(ctx, "ingestion", "processing "+f.Name)

	n, err := s.process(ctx, f, kind)
	if err != nil {
		if !isExpectedFailure(err) {
			span.SetError(err)
		}
		s.logger.Warn("file ingestion failed", "filename", f.Name, "kind", kind, "error", err)
		return domain.FailedResult(f.Name, kind, err)
	}

	res := domain.IngestionResult{
		Filename:           f.Name,
		Success:            true,
		DocumentsProcessed: n,
		FileKind:           kind,
	}
	if !s.index.Ready() {
		res.Warning = fmt.Sprintf("vector index not ready: %d documents were extracted but not indexed", n)
		s.logger.Warn("file extracted but not indexed", "filename", f.Name, "kind", kind, "documents", n)
		return res
	}

	s.logger.Info("file ingested", "filename", f.Name, "kind", kind, "documents", n)
	return res
}

func (s *IngestionService) process(ctx context.Context, f SourceFile, kind domain.FileKind) (int, error) {
	wb, err := s.readWorkbook(ctx, f, kind)
	if err != nil {
		return 0, err
	}

	dataset := extraction.Extract(wb)
	if len(dataset) == 0 {
		return 0, domain.Wrap(domain.ErrNoMarkerRows, fmt.Errorf("no data rows found after the 'additional notes:' marker in %s", f.Name))
	}

	meta := domain.UnitMetadata{
		Filename:       f.Name,
		SourceKind:     domain.SourceKindFor(kind),
		OriginalFormat: strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), "."),
		Extra:          map[string]string{},
	}

	if s.store != nil {
		stored, err := s.store.Save(ctx, f.Path, f.Name)
		if err != nil {
			return 0, fmt.Errorf("failed to store original: %w", err)
		}
		meta.StoredPath = stored
	}

	units := s.chunker.Chunk(extraction.Flatten(dataset), meta)
	if err := s.index.AddDocuments(ctx, units); err != nil {
		return 0, err
	}
	return len(units), nil
}

func (s *IngestionService) readWorkbook(ctx context.Context, f SourceFile, kind domain.FileKind) (domain.Workbook, error) {
	switch kind {
	case domain.FileKindPDF:
		return s.tables.ExtractWorkbook(ctx, f.Path)
	case domain.FileKindExcel:
		return s.sheets.ReadWorkbook(f.Path)
	}
	return domain.Workbook{}, domain.ErrUnsupportedFileType
}

func partitionSupported(files []SourceFile) (supported, unsupported []SourceFile) {
	for _, f := range files {
		if domain.IsSupportedFile(f.Name) {
			supported = append(supported, f)
		} else {
			unsupported = append(unsupported, f)
		}
	}
	return supported, unsupported
}

// isExpectedFailure reports content problems that are not worth an error
// event in Sentry.
func isExpectedFailure(err error) bool {
	return errors.Is(err, domain.ErrNoMarkerRows) ||
		errors.Is(err, domain.ErrNoTablesFound) ||
		errors.Is(err, domain.ErrUnreadableDocument)
}

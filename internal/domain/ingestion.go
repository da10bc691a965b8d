package domain

import "fmt"

// IngestionResult is the outcome of ingesting one file.
type IngestionResult struct {
	Filename           string   `json:"filename"`
	Success            bool     `json:"success"`
	DocumentsProcessed int      `json:"documents_processed"`
	ErrorMessage       string   `json:"error_message,omitempty"`
	FileKind           FileKind `json:"file_type"`
	// Warning is set on a successful file whose documents did not reach the
	// index, e.g. because the index was down.
	Warning            string   `json:"warning,omitempty"`
}

// ProcessingSummary counts files per kind for one batch.
type ProcessingSummary struct {
	PDFFiles   int `json:"pdf_files"`
	ExcelFiles int `json:"excel_files"`
	Skipped    int `json:"skipped_files"`
}

// BatchIngestionReport aggregates the per-file results of one ingestion run.
type BatchIngestionReport struct {
	Message                 string            `json:"message"`
	TotalFilesProcessed     int               `json:"total_files_processed"`
	SuccessfulFiles         int               `json:"successful_files"`
	FailedFiles             int               `json:"failed_files"`
	TotalDocumentsProcessed int               `json:"total_documents_processed"`
	FileResults             []IngestionResult `json:"file_results"`
	ProcessingSummary       ProcessingSummary `json:"processing_summary"`
}

// NewBatchIngestionReport creates an empty report.
func NewBatchIngestionReport() *BatchIngestionReport {
	return &BatchIngestionReport{FileResults: []IngestionResult{}}
}

// Record appends a file result and updates the totals.
func (r *BatchIngestionReport) Record(res IngestionResult) {
	r.FileResults = append(r.FileResults, res)
	r.TotalFilesProcessed++
	switch res.FileKind {
	case FileKindPDF:
		r.ProcessingSummary.PDFFiles++
	case FileKindExcel:
		r.ProcessingSummary.ExcelFiles++
	}
	if res.Success {
		r.SuccessfulFiles++
		r.TotalDocumentsProcessed += res.DocumentsProcessed
		return
	}
	r.FailedFiles++
}

// Skip counts a file that was discovered but not processed.
func (r *BatchIngestionReport) Skip(n int) {
	r.ProcessingSummary.Skipped += n
}

// Finalize sets the summary message.
func (r *BatchIngestionReport) Finalize() {
	r.Message = fmt.Sprintf("Processed %d files: %d successful, %d failed",
		r.TotalFilesProcessed, r.SuccessfulFiles, r.FailedFiles)
}

// FailedResult builds a failure result for a file.
func FailedResult(filename string, kind FileKind, err error) IngestionResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return IngestionResult{
		Filename:     filename,
		Success:      false,
		ErrorMessage: msg,
		FileKind:     kind,
	}
}

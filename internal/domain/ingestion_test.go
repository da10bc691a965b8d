package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchIngestionReport_Record(t *testing.T) {
	report := NewBatchIngestionReport()

	report.Record(IngestionResult{Filename: "a.xlsx", Success: true, DocumentsProcessed: 3, FileKind: FileKindExcel})
	report.Record(IngestionResult{Filename: "b.pdf", Success: true, DocumentsProcessed: 2, FileKind: FileKindPDF})
	report.Record(FailedResult("c.pdf", FileKindPDF, ErrNoTablesFound))
	report.Skip(2)
	report.Finalize()

	assert.Equal(t, 3, report.TotalFilesProcessed)
	assert.Equal(t, 2, report.SuccessfulFiles)
	assert.Equal(t, 1, report.FailedFiles)
	assert.Equal(t, 5, report.TotalDocumentsProcessed)
	assert.Equal(t, 2, report.ProcessingSummary.PDFFiles)
	assert.Equal(t, 1, report.ProcessingSummary.ExcelFiles)
	assert.Equal(t, 2, report.ProcessingSummary.Skipped)
	require.Len(t, report.FileResults, 3)
	assert.Equal(t, "c.pdf", report.FileResults[2].Filename)
	assert.Contains(t, report.FileResults[2].ErrorMessage, "no tables found")
	assert.Equal(t, "Processed 3 files: 2 successful, 1 failed", report.Message)
}

func TestBatchIngestionReport_AllFailed(t *testing.T) {
	report := NewBatchIngestionReport()
	report.Record(FailedResult("a.xlsx", FileKindExcel, errors.New("boom")))
	report.Finalize()

	assert.Equal(t, 0, report.SuccessfulFiles)
	assert.Equal(t, 1, report.FailedFiles)
	assert.Equal(t, 0, report.TotalDocumentsProcessed)
	assert.Equal(t, "Processed 1 files: 0 successful, 1 failed", report.Message)
}

func TestFailedResult_NilError(t *testing.T) {
	res := FailedResult("x.pdf", FileKindPDF, nil)
	assert.False(t, res.Success)
	assert.Empty(t, res.ErrorMessage)
}

func TestKindFromFilename(t *testing.T) {
	tests := []struct {
		name string
		kind FileKind
		ok   bool
	}{
		{"log.pdf", FileKindPDF, true},
		{"LOG.PDF", FileKindPDF, true},
		{"shift.xlsx", FileKindExcel, true},
		{"old.xls", FileKindExcel, true},
		{"notes.txt", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := KindFromFilename(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestUnitMetadata_RoundTripMap(t *testing.T) {
	meta := UnitMetadata{
		Filename:       "log.pdf",
		SourceKind:     SourceKindPDF,
		OriginalFormat: "pdf",
		StoredPath:     "abc.pdf",
		Extra:          map[string]string{MetaChunkIndex: "0"},
	}

	back := MetadataFromMap(meta.ToMap())
	assert.Equal(t, meta, back)
}

func TestUnitMetadata_CloneIsIndependent(t *testing.T) {
	meta := UnitMetadata{Filename: "a", Extra: map[string]string{"k": "v"}}
	clone := meta.Clone()
	clone.Extra["k"] = "changed"
	assert.Equal(t, "v", meta.Extra["k"])
}

func TestDomainError_IsMatchesWrappedSentinel(t *testing.T) {
	err := Wrap(ErrDimensionMismatch, errors.New("768 vs 1536"))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.NotErrorIs(t, err, ErrIndexUnavailable)

	de, ok := AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidOperation, de.Code)
}

func TestIndexCollection_Compatible(t *testing.T) {
	want := IndexCollection{Name: "building_logs", Dimension: 768, Distance: DistanceCosine}

	assert.NoError(t, want.Compatible(want))

	other := want
	other.Dimension = 1536
	assert.ErrorIs(t, other.Compatible(want), ErrDimensionMismatch)
}

func TestValidateIndexCollection(t *testing.T) {
	assert.Error(t, ValidateIndexCollection(nil))
	assert.Error(t, ValidateIndexCollection(&IndexCollection{Dimension: 768, Distance: DistanceCosine}))
	assert.Error(t, ValidateIndexCollection(&IndexCollection{Name: "x", Distance: DistanceCosine}))
	assert.Error(t, ValidateIndexCollection(&IndexCollection{Name: "x", Dimension: 3, Distance: "dot"}))
	assert.NoError(t, ValidateIndexCollection(&IndexCollection{Name: "x", Dimension: 3, Distance: DistanceCosine}))
}

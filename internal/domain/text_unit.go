package domain

import (
	"path/filepath"
	"strings"
)

// FileKind represents the kind of a source file
type FileKind string

const (
	FileKindPDF   FileKind = "pdf"
	FileKindExcel FileKind = "excel"
)

// SourceKind tags a text unit with the extraction path that produced it
type SourceKind string

const (
	SourceKindPDF   SourceKind = "pdf_extraction"
	SourceKindExcel SourceKind = "excel_extraction"
)

// Metadata keys stored alongside each indexed unit.
const (
	MetaFilename       = "filename"
	MetaSourceKind     = "source"
	MetaOriginalFormat = "original_format"
	MetaStoredPath     = "pdf_path"
	MetaChunkStrategy  = "chunk_strategy"
	MetaChunkIndex     = "chunk_index"
)

// UnitMetadata describes where a text unit came from.
type UnitMetadata struct {
	Filename       string
	SourceKind     SourceKind
	OriginalFormat string
	StoredPath     string
	Extra          map[string]string
}

// TextUnit is a bounded piece of content plus its metadata.
type TextUnit struct {
	ID       string
	Content  string
	Metadata UnitMetadata
	Score    float64
}

// SourceAttribution names a file an answer drew from.
type SourceAttribution struct {
	Filename string `json:"filename"`
	Path     string `json:"path,omitempty"`
}

// Answer is the result of the answering pipeline.
type Answer struct {
	Answer           string              `json:"answer"`
	Sources          []SourceAttribution `json:"sources"`
	EnhancedQuestion string              `json:"enhanced_question"`
}

// Clone returns a copy of the metadata with its own Extra map.
func (m UnitMetadata) Clone() UnitMetadata {
	out := m
	out.Extra = make(map[string]string, len(m.Extra))
	for k, v := range m.Extra {
		out.Extra[k] = v
	}
	return out
}

// ToMap flattens the metadata into the key/value form stored in the index.
func (m UnitMetadata) ToMap() map[string]string {
	out := make(map[string]string, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[MetaFilename] = m.Filename
	if m.SourceKind != "" {
		out[MetaSourceKind] = string(m.SourceKind)
	}
	if m.OriginalFormat != "" {
		out[MetaOriginalFormat] = m.OriginalFormat
	}
	if m.StoredPath != "" {
		out[MetaStoredPath] = m.StoredPath
	}
	return out
}

// MetadataFromMap is the inverse of ToMap.
func MetadataFromMap(in map[string]string) UnitMetadata {
	m := UnitMetadata{Extra: map[string]string{}}
	for k, v := range in {
		switch k {
		case MetaFilename:
			m.Filename = v
		case MetaSourceKind:
			m.SourceKind = SourceKind(v)
		case MetaOriginalFormat:
			m.OriginalFormat = v
		case MetaStoredPath:
			m.StoredPath = v
		default:
			m.Extra[k] = v
		}
	}
	return m
}

var supportedExtensions = map[string]FileKind{
	".pdf":  FileKindPDF,
	".xlsx": FileKindExcel,
	".xls":  FileKindExcel,
}

// KindFromFilename determines the file kind by extension.
func KindFromFilename(name string) (FileKind, bool) {
	kind, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return kind, ok
}

// IsSupportedFile reports whether the file extension can be ingested.
func IsSupportedFile(name string) bool {
	_, ok := KindFromFilename(name)
	return ok
}

// SourceKindFor maps a file kind to the source tag its units carry.
func SourceKindFor(kind FileKind) SourceKind {
	if kind == FileKindPDF {
		return SourceKindPDF
	}
	return SourceKindExcel
}

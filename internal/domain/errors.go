package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so a sentinel
// still matches after being re-wrapped with a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap attaches a cause to a sentinel while keeping its code and message.
func Wrap(sentinel *DomainError, err error) *DomainError {
	return NewDomainErrorWithCause(sentinel.Code, sentinel.Message, err)
}

// AsDomainError unwraps err to the first DomainError in its chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUnavailable      = "UNAVAILABLE"
)

// Validation errors
var (
	ErrUnsupportedFileType = NewDomainError(ErrCodeValidation, "unsupported file type")
	ErrInvalidFilename     = NewDomainError(ErrCodeValidation, "invalid filename")
	ErrEmptyUpload         = NewDomainError(ErrCodeValidation, "no files uploaded")
	ErrArchiveInvalid      = NewDomainError(ErrCodeValidation, "invalid zip archive")
	ErrEmptyQuestion       = NewDomainError(ErrCodeValidation, "question must not be empty")
)

// Extraction errors
var (
	ErrUnreadableDocument = NewDomainError(ErrCodeInvalidOperation, "document could not be read")
	ErrNoMarkerRows       = NewDomainError(ErrCodeInvalidOperation, "no rows found after the 'additional notes:' marker")
	ErrNoTablesFound      = NewDomainError(ErrCodeInvalidOperation, "no tables found in document")
)

// Index errors
var (
	ErrIndexUnavailable  = NewDomainError(ErrCodeUnavailable, "vector index unavailable")
	ErrDimensionMismatch = NewDomainError(ErrCodeInvalidOperation, "embedding dimension does not match collection")
	ErrCollectionExists  = NewDomainError(ErrCodeAlreadyExists, "collection already exists")
	ErrCollectionMissing = NewDomainError(ErrCodeNotFound, "collection not found")
)

// Not found errors
var (
	ErrFileNotFound = NewDomainError(ErrCodeNotFound, "file not found")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

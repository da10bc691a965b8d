package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/api"
	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/service"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

type Ingester interface {
	IngestSpreadsheet(ctx context.Context, f service.SourceFile) (*domain.IngestionResult, error)
	IngestFiles(ctx context.Context, files []service.SourceFile, maxFiles int) *domain.BatchIngestionReport
}

type UploadHandler struct {
	svc      Ingester
	maxFiles int
	scratch  string
	logger   *slog.Logger
}

// NewUploadHandler spools uploads under scratch ("" means the OS temp dir).
// maxFiles is the cap applied when a request does not set max_files.
func NewUploadHandler(svc Ingester, maxFiles int, scratch string, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		svc:      svc,
		maxFiles: maxFiles,
		scratch:  scratch,
		logger:   logger.With("component", "upload_handler"),
	}
}

// Upload ingests one spreadsheet from the "file" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, domain.Wrap(domain.ErrEmptyUpload, err))
		return
	}
	defer file.Close()

	if kind, ok := domain.KindFromFilename(header.Filename); !ok || kind != domain.FileKindExcel {
		api.HandleError(w, domain.Wrap(domain.ErrUnsupportedFileType, fmt.Errorf("%s: only .xlsx and .xls files are accepted", header.Filename)))
		return
	}

	dir, cleanup, err := h.tempDir()
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer cleanup()

	src, err := spool(file, header.Filename, dir)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.IngestSpreadsheet(r.Context(), src)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	api.Success(w, status, result)
}

// UploadFolder ingests every file sent under the "files" field, in upload order.
func (h *UploadHandler) UploadFolder(w http.ResponseWriter, r *http.Request) {
	maxFiles, err := h.maxFilesParam(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		api.HandleError(w, domain.Wrap(domain.ErrEmptyUpload, err))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		api.HandleError(w, domain.ErrEmptyUpload)
		return
	}

	dir, cleanup, err := h.tempDir()
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer cleanup()

	files := make([]service.SourceFile, 0, len(headers))
	for i, fh := range headers {
		// One subdirectory per part keeps same-named files from different
		// folders apart.
		src, err := spoolHeader(fh, filepath.Join(dir, strconv.Itoa(i)))
		if err != nil {
			api.HandleError(w, err)
			return
		}
		files = append(files, src)
	}

	api.Success(w, http.StatusOK, h.svc.IngestFiles(r.Context(), files, maxFiles))
}

// UploadZip extracts the archive in the "file" field and ingests its contents.
func (h *UploadHandler) UploadZip(w http.ResponseWriter, r *http.Request) {
	maxFiles, err := h.maxFilesParam(r)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.HandleError(w, domain.Wrap(domain.ErrEmptyUpload, err))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".zip") {
		api.HandleError(w, domain.Wrap(domain.ErrUnsupportedFileType, fmt.Errorf("%s: only .zip files are accepted", header.Filename)))
		return
	}

	dir, cleanup, err := h.tempDir()
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer cleanup()

	archive, err := spool(file, header.Filename, dir)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	files, err := service.ExtractArchive(archive.Path, filepath.Join(dir, "extracted"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, h.svc.IngestFiles(r.Context(), files, maxFiles))
}

func (h *UploadHandler) maxFilesParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("max_files")
	if raw == "" {
		return h.maxFiles, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "max_files must be a non-negative integer")
	}
	return n, nil
}

func (h *UploadHandler) tempDir() (string, func(), error) {
	dir, err := os.MkdirTemp(h.scratch, "shiftlog-upload-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create spool dir: %w", err)
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			h.logger.Warn("failed to remove spool dir", "dir", dir, "error", err)
		}
	}, nil
}

func spoolHeader(fh *multipart.FileHeader, dir string) (service.SourceFile, error) {
	f, err := fh.Open()
	if err != nil {
		return service.SourceFile{}, fmt.Errorf("failed to read part %s: %w", fh.Filename, err)
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return service.SourceFile{}, err
	}
	return spool(f, fh.Filename, dir)
}

// spool writes r to dir under the last path element of filename.
func spool(r io.Reader, filename, dir string) (service.SourceFile, error) {
	name := filepath.Base(filepath.FromSlash(strings.ReplaceAll(filename, `\`, "/")))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return service.SourceFile{}, domain.Wrap(domain.ErrInvalidFilename, fmt.Errorf("%q", filename))
	}

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return service.SourceFile{}, fmt.Errorf("failed to spool %s: %w", name, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return service.SourceFile{}, fmt.Errorf("failed to spool %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		return service.SourceFile{}, err
	}
	return service.SourceFile{Path: path, Name: name}, nil
}

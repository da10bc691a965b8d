package handlers

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/shiftlog/internal/api"
	"github.com/cloo-solutions/shiftlog/internal/storage"
)

type FileSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type FileHandler struct {
	files  FileSource
	logger *slog.Logger
}

func NewFileHandler(files FileSource, logger *slog.Logger) *FileHandler {
	return &FileHandler{files: files, logger: logger.With("component", "file_handler")}
}

// Get streams a stored original. Stores that can sign URLs redirect instead.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if err := storage.ValidateName(name); err != nil {
		api.HandleError(w, err)
		return
	}

	if signer, ok := h.files.(storage.URLSigner); ok {
		url, err := signer.DownloadURL(r.Context(), name)
		if err != nil {
			api.HandleError(w, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	rc, err := h.files.Open(r.Context(), name)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	defer rc.Close()

	contentType, disposition := "application/octet-stream", "attachment"
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		contentType, disposition = "application/pdf", "inline"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream file", "filename", name, "error", err)
	}
}

package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func fileRequest(name string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/files/"+name, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("filename", name)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestFileHandler_Get_PDFInline(t *testing.T) {
	files := new(MockFileSource)
	files.On("Open", mock.Anything, "abc.pdf").Return(io.NopCloser(strings.NewReader("%PDF")), nil)

	w := httptest.NewRecorder()
	NewFileHandler(files, testLogger()).Get(w, fileRequest("abc.pdf"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "inline; filename=abc.pdf", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", w.Body.String())
}

func TestFileHandler_Get_SpreadsheetAttachment(t *testing.T) {
	files := new(MockFileSource)
	files.On("Open", mock.Anything, "abc.xlsx").Return(io.NopCloser(strings.NewReader("x")), nil)

	w := httptest.NewRecorder()
	NewFileHandler(files, testLogger()).Get(w, fileRequest("abc.xlsx"))

	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=abc.xlsx", w.Header().Get("Content-Disposition"))
}

func TestFileHandler_Get_Errors(t *testing.T) {
	t.Run("traversal", func(t *testing.T) {
		files := new(MockFileSource)
		w := httptest.NewRecorder()
		NewFileHandler(files, testLogger()).Get(w, fileRequest("..%2Fsecret"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		files.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
	})

	t.Run("missing", func(t *testing.T) {
		files := new(MockFileSource)
		files.On("Open", mock.Anything, "gone.pdf").Return(nil, domain.ErrFileNotFound)
		w := httptest.NewRecorder()
		NewFileHandler(files, testLogger()).Get(w, fileRequest("gone.pdf"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFileHandler_Get_RedirectsToSignedURL(t *testing.T) {
	files := new(MockSignedFileSource)
	files.On("DownloadURL", mock.Anything, "abc.pdf").Return("https://bucket.example.com/abc.pdf?sig=1", nil)

	w := httptest.NewRecorder()
	NewFileHandler(files, testLogger()).Get(w, fileRequest("abc.pdf"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://bucket.example.com/abc.pdf?sig=1", w.Header().Get("Location"))
	files.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, question string) *domain.Answer {
	args := m.Called(ctx, question)
	return args.Get(0).(*domain.Answer)
}

type MockIndexStatus struct {
	mock.Mock
}

func (m *MockIndexStatus) Ready() bool {
	return m.Called().Bool(0)
}

func (m *MockIndexStatus) HasDocuments() bool {
	return m.Called().Bool(0)
}

func (m *MockIndexStatus) Collection() string {
	return m.Called().String(0)
}

type MockIngester struct {
	mock.Mock
}

func (m *MockIngester) IngestSpreadsheet(ctx context.Context, f service.SourceFile) (*domain.IngestionResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionResult), args.Error(1)
}

func (m *MockIngester) IngestFiles(ctx context.Context, files []service.SourceFile, maxFiles int) *domain.BatchIngestionReport {
	args := m.Called(ctx, files, maxFiles)
	return args.Get(0).(*domain.BatchIngestionReport)
}

type MockFileSource struct {
	mock.Mock
}

func (m *MockFileSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

type MockSignedFileSource struct {
	MockFileSource
}

func (m *MockSignedFileSource) DownloadURL(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

type part struct {
	field, filename, content string
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

package client

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")
	reader := bytes.NewReader(data)

	var progressCalls []struct{ current, total int64 }
	pr := &progressReader{
		reader: reader,
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressCalls = append(progressCalls, struct{ current, total int64 }{current, total})
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)

	// Progress should have been called at least once
	assert.NotEmpty(t, progressCalls)

	// Final progress should equal total
	lastCall := progressCalls[len(progressCalls)-1]
	assert.Equal(t, int64(len(data)), lastCall.current)
	assert.Equal(t, int64(len(data)), lastCall.total)
}

func TestProgressReader_NilCallback(t *testing.T) {
	data := []byte("hello world")
	reader := bytes.NewReader(data)

	pr := &progressReader{
		reader:     reader,
		total:      int64(len(data)),
		onProgress: nil, // No callback
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestProgressReader_SmallReads(t *testing.T) {
	data := []byte("hello world")
	reader := bytes.NewReader(data)

	var progressValues []int64
	pr := &progressReader{
		reader: reader,
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressValues = append(progressValues, current)
		},
	}

	// Read one byte at a time
	buf := make([]byte, 1)
	for {
		n, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	// Progress should increase monotonically
	for i := 1; i < len(progressValues); i++ {
		assert.GreaterOrEqual(t, progressValues[i], progressValues[i-1])
	}
}

func TestNewAPIClientWithCmd_Cascade(t *testing.T) {
	withConfigPath(t, filepath.Join(t.TempDir(), "config.json"))
	t.Setenv(envAPIURL, "")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.BaseURL())

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://saved:8080/"}))
	api, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://saved:8080", api.BaseURL())

	t.Setenv(envAPIURL, "http://env:8080")
	api, err = NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env:8080", api.BaseURL())

	api, err = NewAPIClientWithCmd(newURLCmd("http://flag:8080"))
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8080", api.BaseURL())
}

func TestNewAPIClientWithConfig_InvalidURL(t *testing.T) {
	_, err := NewAPIClientWithConfig("localhost")
	assert.Error(t, err)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"question must not be empty"}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	_, err = api.Post("/api/chat", AskRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "question must not be empty", apiErr.Message)
}

func TestAPIClient_ErrorResponseWithData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"data":{"filename":"a.xlsx","success":false}}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	_, err = api.Get("/api/upload")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.JSONEq(t, `{"filename":"a.xlsx","success":false}`, string(apiErr.Data))
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	_, err = api.Get("/api/health")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestAPIClient_UploadStreamsMultipart(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "day1.xlsx")
	second := filepath.Join(dir, "day2.pdf")
	require.NoError(t, os.WriteFile(first, []byte("sheet"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("%PDF-1.4"), 0644))

	var (
		gotNames    []string
		gotContents []string
		gotQuery    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		mr, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			return
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, "files", part.FormName())
			body, _ := io.ReadAll(part)
			gotNames = append(gotNames, part.FileName())
			gotContents = append(gotContents, string(body))
		}
		_, _ = w.Write([]byte(`{"data":{"message":"ok"}}`))
	}))
	defer srv.Close()

	api, err := NewAPIClientWithConfig(srv.URL)
	require.NoError(t, err)

	var last int64
	resp, err := api.Upload("/api/upload-folder", "files", []UploadPart{
		{Path: first, Name: "day1.xlsx"},
		{Path: second, Name: "day2.pdf"},
	}, url.Values{"max_files": {"5"}}, func(current, total int64) {
		last = current
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"ok"}`, string(resp.Data))
	assert.Equal(t, []string{"day1.xlsx", "day2.pdf"}, gotNames)
	assert.Equal(t, []string{"sheet", "%PDF-1.4"}, gotContents)
	assert.Equal(t, "max_files=5", gotQuery)
	assert.Greater(t, last, int64(0))
}

func TestAPIClient_UploadMissingFile(t *testing.T) {
	api, err := NewAPIClientWithConfig("http://localhost:1")
	require.NoError(t, err)

	_, err = api.Upload("/api/upload", "file", []UploadPart{{Path: filepath.Join(t.TempDir(), "missing.xlsx"), Name: "missing.xlsx"}}, nil, nil)
	assert.Error(t, err)
}

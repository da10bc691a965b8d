//go:build e2e

package e2e

import (
	"archive/zip"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloo-solutions/shiftlog/internal/api/handlers"
	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/service"
	"github.com/cloo-solutions/shiftlog/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nightShift(name string) testutil.SheetFixture {
	return testutil.MarkerSheet(name,
		[]string{"22:00", "Boiler pressure checked, 1.8 bar"},
		[]string{"01:30", "Fire door on level 3 propped open, closed it"},
		[]string{"", ""},
		[]string{"05:45", "Car park lights left on after sunrise"},
	)
}

func decodeReport(t *testing.T, resp *APIResponse) domain.BatchIngestionReport {
	t.Helper()
	var report domain.BatchIngestionReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	return report
}

func writeZip(t *testing.T, path string, files ...string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, src := range files {
		w, err := zw.Create("logs/" + filepath.Base(src))
		require.NoError(t, err)
		in, err := os.Open(src)
		require.NoError(t, err)
		_, err = io.Copy(w, in)
		in.Close()
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// TestE2E_NotReadyBeforeIngestion covers the empty index.
func TestE2E_NotReadyBeforeIngestion(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health reports an empty index", func(t *testing.T) {
		resp, err := env.Get("/api/health")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var health handlers.HealthResponse
		require.NoError(t, json.Unmarshal(resp.Data, &health))
		assert.Equal(t, "healthy", health.Status)
		assert.True(t, health.IndexReady)
		assert.False(t, health.HasDocuments)
		assert.Equal(t, testCollection, health.Collection)
	})

	t.Run("chat answers with the not ready message", func(t *testing.T) {
		resp, err := env.Post("/api/chat", map[string]string{"question": "Was the boiler checked?"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var answer domain.Answer
		require.NoError(t, json.Unmarshal(resp.Data, &answer))
		assert.Equal(t, service.NotReadyAnswer, answer.Answer)
		assert.Empty(t, answer.Sources)
	})

	t.Run("empty question is rejected", func(t *testing.T) {
		resp, err := env.Post("/api/chat", map[string]string{"question": "  "})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotEmpty(t, resp.Error)
	})
}

// TestE2E_IngestAndAsk uploads every supported shape and then asks about it.
func TestE2E_IngestAndAsk(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	dir := t.TempDir()
	week1 := testutil.WriteXLSX(t, dir, "week1.xlsx", nightShift("Monday"), nightShift("Tuesday"))
	original, err := os.ReadFile(week1)
	require.NoError(t, err)

	t.Run("single spreadsheet upload", func(t *testing.T) {
		resp, err := env.Upload("/api/upload", "file", week1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result domain.IngestionResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.True(t, result.Success)
		assert.Equal(t, "week1.xlsx", result.Filename)
		assert.Equal(t, domain.FileKindExcel, result.FileKind)
		assert.Greater(t, result.DocumentsProcessed, 0)
		assert.True(t, env.Index.HasDocuments())
	})

	t.Run("spreadsheet without marker is unprocessable", func(t *testing.T) {
		blank := testutil.WriteXLSX(t, dir, "blank.xlsx", testutil.SheetFixture{
			Name: "Sheet1",
			Rows: [][]string{{"Date", "2024-03-02"}, {"Shift", "Day"}},
		})
		resp, err := env.Upload("/api/upload", "file", blank)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var result domain.IngestionResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.False(t, result.Success)
		assert.Contains(t, result.ErrorMessage, "additional notes:")
	})

	t.Run("single upload rejects other file types", func(t *testing.T) {
		notes := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(notes, []byte("hello"), 0644))

		resp, err := env.Upload("/api/upload", "file", notes)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("folder upload skips unsupported files", func(t *testing.T) {
		folder := t.TempDir()
		week2 := testutil.WriteXLSX(t, folder, "week2.xlsx", nightShift("Wednesday"))
		readme := filepath.Join(folder, "readme.txt")
		require.NoError(t, os.WriteFile(readme, []byte("ignore me"), 0644))

		resp, err := env.Upload("/api/upload-folder", "files", week2, readme)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		report := decodeReport(t, resp)
		assert.Equal(t, 1, report.TotalFilesProcessed)
		assert.Equal(t, 1, report.SuccessfulFiles)
		assert.Equal(t, 1, report.ProcessingSummary.ExcelFiles)
		assert.Equal(t, 1, report.ProcessingSummary.Skipped)
		assert.Equal(t, "Processed 1 files: 1 successful, 0 failed", report.Message)
	})

	t.Run("folder upload honours max_files", func(t *testing.T) {
		folder := t.TempDir()
		a := testutil.WriteXLSX(t, folder, "a.xlsx", nightShift("Thursday"))
		b := testutil.WriteXLSX(t, folder, "b.xlsx", nightShift("Friday"))

		resp, err := env.Upload("/api/upload-folder?max_files=1", "files", a, b)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		report := decodeReport(t, resp)
		assert.Equal(t, 1, report.TotalFilesProcessed)
		assert.Equal(t, 1, report.ProcessingSummary.Skipped)
		require.Len(t, report.FileResults, 1)
		assert.Equal(t, "a.xlsx", report.FileResults[0].Filename)
	})

	t.Run("zip upload", func(t *testing.T) {
		inner := testutil.WriteXLSX(t, t.TempDir(), "weekend.xlsx", nightShift("Saturday"))
		archive := filepath.Join(dir, "weekend.zip")
		writeZip(t, archive, inner)

		resp, err := env.Upload("/api/upload-zip", "file", archive)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		report := decodeReport(t, resp)
		assert.Equal(t, 1, report.SuccessfulFiles)
		require.Len(t, report.FileResults, 1)
		assert.Equal(t, "weekend.xlsx", report.FileResults[0].Filename)
	})

	t.Run("invalid zip is rejected", func(t *testing.T) {
		broken := filepath.Join(dir, "broken.zip")
		require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0644))

		resp, err := env.Upload("/api/upload-zip", "file", broken)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	var answer domain.Answer
	t.Run("chat answers with deduplicated sources", func(t *testing.T) {
		resp, err := env.Post("/api/chat", map[string]string{"question": "Was the boiler pressure checked?"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, json.Unmarshal(resp.Data, &answer))
		assert.Equal(t, CannedAnswer, answer.Answer)
		assert.Equal(t, "Was the boiler pressure checked?", answer.EnhancedQuestion)
		require.NotEmpty(t, answer.Sources)
		assert.LessOrEqual(t, len(answer.Sources), service.RetrievalK)

		seen := map[string]bool{}
		for _, s := range answer.Sources {
			assert.False(t, seen[s.Filename], "duplicate source %s", s.Filename)
			seen[s.Filename] = true
		}
	})

	t.Run("chat accepts the message field", func(t *testing.T) {
		resp, err := env.Post("/api/chat", map[string]string{"message": "fire door"})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got domain.Answer
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, CannedAnswer, got.Answer)
	})

	t.Run("stored original redirects to a presigned URL", func(t *testing.T) {
		var stored string
		for _, s := range answer.Sources {
			if s.Filename == "week1.xlsx" {
				stored = s.Path
			}
		}
		if stored == "" {
			t.Skip("week1.xlsx was not among the retrieved sources")
		}

		resp, err := env.Get("/api/files/" + url.PathEscape(stored))
		require.NoError(t, err)
		require.Equal(t, http.StatusFound, resp.StatusCode)

		location := resp.Header.Get("Location")
		require.NotEmpty(t, location)
		content, err := env.DownloadFile(location)
		require.NoError(t, err)
		assert.Equal(t, original, content)
	})

	t.Run("missing file is not found", func(t *testing.T) {
		resp, err := env.Get("/api/files/does-not-exist.xlsx")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("path traversal is rejected", func(t *testing.T) {
		resp, err := env.Get("/api/files/..%2F..%2Fetc%2Fpasswd")
		require.NoError(t, err)
		assert.True(t, resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound,
			"unexpected status %d", resp.StatusCode)
	})
}

// TestE2E_CLI drives the server through the shiftlog binary.
func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	workDir := t.TempDir()
	logs := filepath.Join(workDir, "logs")
	require.NoError(t, os.MkdirAll(logs, 0755))
	testutil.WriteXLSX(t, logs, "monday.xlsx", nightShift("Monday"))
	require.NoError(t, os.WriteFile(filepath.Join(logs, "notes.txt"), []byte("skip"), 0644))

	t.Run("health", func(t *testing.T) {
		out, err := env.RunShiftlog(workDir, "health", "--output")
		require.NoError(t, err, out)

		var health handlers.HealthResponse
		require.NoError(t, json.Unmarshal([]byte(out), &health))
		assert.True(t, health.IndexReady)
	})

	t.Run("ask before ingestion", func(t *testing.T) {
		out, err := env.RunShiftlog(workDir, "ask", "anything", "new?")
		require.NoError(t, err, out)
		assert.Contains(t, out, service.NotReadyAnswer)
	})

	t.Run("upload folder", func(t *testing.T) {
		out, err := env.RunShiftlog(workDir, "upload", "--output", logs)
		require.NoError(t, err, out)

		var report domain.BatchIngestionReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 1, report.SuccessfulFiles)
		assert.Equal(t, 1, report.ProcessingSummary.Skipped)
	})

	t.Run("ask after ingestion", func(t *testing.T) {
		out, err := env.RunShiftlog(workDir, "ask", "car park lights")
		require.NoError(t, err, out)
		assert.True(t, strings.HasPrefix(out, CannedAnswer), out)
		assert.Contains(t, out, "monday.xlsx")
	})

	t.Run("config set-url", func(t *testing.T) {
		out, err := env.RunShiftlog(workDir, "config", "set-url", env.ServerURL)
		require.NoError(t, err, out)
		assert.Contains(t, out, env.ServerURL)
	})
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/cli"
	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/service"
	"github.com/spf13/cobra"
)

const (
	uploadPath       = "/api/upload"
	uploadFolderPath = "/api/upload-folder"
	uploadZipPath    = "/api/upload-zip"
)

// uploadPlan is the endpoint and parts chosen for a set of local paths.
type uploadPlan struct {
	Endpoint string
	Field    string
	Parts    []UploadPart
	Batch    bool
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var maxFiles int

	cmd := &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload shift logs for ingestion",
		Long: `Uploads spreadsheets, PDFs, folders or a zip archive to the server.

A single spreadsheet goes to /api/upload and a single .zip to /api/upload-zip.
Folders and multiple files are sent together to /api/upload-folder; folders are
walked recursively in lexical order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runUpload(api, args, maxFiles, outputJSON, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&maxFiles, "max-files", "n", 0, "Maximum number of supported files the server processes (0 uses the server default)")

	return cli.WithOutput(cmd, "BatchIngestionReport", "IngestionResult")
}

func planUpload(paths []string) (*uploadPlan, error) {
	if len(paths) == 1 {
		info, err := os.Stat(paths[0])
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			part := UploadPart{Path: paths[0], Name: filepath.Base(paths[0])}
			if strings.EqualFold(filepath.Ext(part.Name), ".zip") {
				return &uploadPlan{Endpoint: uploadZipPath, Field: "file", Parts: []UploadPart{part}, Batch: true}, nil
			}
			if kind, ok := domain.KindFromFilename(part.Name); ok && kind == domain.FileKindExcel {
				return &uploadPlan{Endpoint: uploadPath, Field: "file", Parts: []UploadPart{part}}, nil
			}
		}
	}

	plan := &uploadPlan{Endpoint: uploadFolderPath, Field: "files", Batch: true}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if strings.EqualFold(filepath.Ext(p), ".zip") {
				return nil, fmt.Errorf("%s: zip archives must be uploaded on their own", p)
			}
			plan.Parts = append(plan.Parts, UploadPart{Path: p, Name: filepath.Base(p)})
			continue
		}
		found, err := service.DiscoverFolder(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			plan.Parts = append(plan.Parts, UploadPart{Path: f.Path, Name: f.Name})
		}
	}
	if len(plan.Parts) == 0 {
		return nil, fmt.Errorf("no files found to upload")
	}
	return plan, nil
}

func runUpload(api *APIClient, paths []string, maxFiles int, outputJSON bool, stdout, stderr io.Writer) error {
	plan, err := planUpload(paths)
	if err != nil {
		return err
	}

	query := url.Values{}
	if plan.Batch && maxFiles > 0 {
		query.Set("max_files", strconv.Itoa(maxFiles))
	}

	var progress ProgressFunc
	if !outputJSON {
		fmt.Fprintf(stderr, "Uploading %d file(s) to %s\n", len(plan.Parts), api.BaseURL()+plan.Endpoint)
		progress = uploadProgress(stderr)
	}

	resp, err := api.Upload(plan.Endpoint, plan.Field, plan.Parts, query, progress)
	if progress != nil {
		fmt.Fprintln(stderr)
	}

	data, err := uploadData(resp, err)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	if !plan.Batch {
		var result domain.IngestionResult
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("failed to parse upload result: %w", err)
		}
		if outputJSON {
			printJSON(stdout, result)
		} else {
			printResult(stdout, result)
		}
		if !result.Success {
			return fmt.Errorf("%s was not ingested", result.Filename)
		}
		return nil
	}

	var report domain.BatchIngestionReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("failed to parse ingestion report: %w", err)
	}
	if outputJSON {
		printJSON(stdout, report)
	} else {
		printReport(stdout, &report)
	}
	if report.TotalFilesProcessed > 0 && report.SuccessfulFiles == 0 {
		return fmt.Errorf("no files were ingested")
	}
	return nil
}

// uploadData returns the result payload, including the one the server
// attaches to an unprocessable single-file upload.
func uploadData(resp *APIResponse, err error) (json.RawMessage, error) {
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && len(apiErr.Data) > 0 {
			return apiErr.Data, nil
		}
		return nil, err
	}
	return resp.Data, nil
}

func uploadProgress(w io.Writer) ProgressFunc {
	last := -1
	return func(current, total int64) {
		if total <= 0 {
			return
		}
		pct := int(current * 100 / total)
		if pct > 100 {
			pct = 100
		}
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r  %3d%%", pct)
	}
}

func printResult(w io.Writer, r domain.IngestionResult) {
	if r.Success {
		fmt.Fprintf(w, "✓ %s: %d documents\n", r.Filename, r.DocumentsProcessed)
		if r.Warning != "" {
			fmt.Fprintf(w, "  ! %s\n", r.Warning)
		}
		return
	}
	fmt.Fprintf(w, "✗ %s: %s\n", r.Filename, r.ErrorMessage)
}

func printReport(w io.Writer, report *domain.BatchIngestionReport) {
	fmt.Fprintln(w, report.Message)
	fmt.Fprintf(w, "Documents: %d  Excel: %d  PDF: %d  Skipped: %d\n",
		report.TotalDocumentsProcessed,
		report.ProcessingSummary.ExcelFiles,
		report.ProcessingSummary.PDFFiles,
		report.ProcessingSummary.Skipped)
	if len(report.FileResults) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, r := range report.FileResults {
		printResult(w, r)
	}
}

func printJSON(w io.Writer, v interface{}) {
	output, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(output))
}

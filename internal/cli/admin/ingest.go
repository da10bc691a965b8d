package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cloo-solutions/shiftlog/internal/cli"
	"github.com/cloo-solutions/shiftlog/internal/config"
	"github.com/cloo-solutions/shiftlog/internal/service"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest files, folders or zip archives",
		Long: `Ingest shift logs into the vector index without going through the API.

Folders are walked recursively in lexical order and zip archives are unpacked
first. Unsupported files are counted as skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Int("max-files", 0, "Maximum number of supported files to process (0 uses SHIFTLOG_MAX_FILES)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")
	cmd.Flags().Bool("no-store", false, "Do not keep a copy of the original files")

	return cli.WithOutput(cmd, "BatchIngestionReport")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Debug)
	shutdownTelemetry := initTelemetry(cfg, logger)
	defer shutdownTelemetry()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	noStore, _ := cmd.Flags().GetBool("no-store")
	maxFiles, _ := cmd.Flags().GetInt("max-files")
	if maxFiles <= 0 {
		maxFiles = cfg.MaxFiles
	}

	scratch, err := os.MkdirTemp("", "shiftlog-ingest-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	files, err := service.ExpandPaths(args, scratch)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger, appOptions{Migrate: !noMigrate, KeepOriginals: !noStore})
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.ingestion.IngestFiles(ctx, files, maxFiles)
	if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if report.TotalFilesProcessed > 0 && report.SuccessfulFiles == 0 {
		return fmt.Errorf("no files were ingested")
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

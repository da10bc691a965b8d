package admin

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloo-solutions/shiftlog/internal/config"
	"github.com/cloo-solutions/shiftlog/internal/jobs"
	"github.com/spf13/cobra"
)

// WatchCmd returns the watch command
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the inbox directory and ingest new files",
		Long: `Poll SHIFTLOG_INBOX_DIR every SHIFTLOG_INBOX_INTERVAL. Ingested files move to
processed/, files that fail or are unsupported move to failed/.`,
		RunE: runWatch,
	}

	cmd.Flags().String("dir", "", "Inbox directory (overrides SHIFTLOG_INBOX_DIR)")
	cmd.Flags().Bool("once", false, "Process the inbox once and exit")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Debug)
	shutdownTelemetry := initTelemetry(cfg, logger)
	defer shutdownTelemetry()

	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.InboxDir = dir
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	a, err := newApp(ctx, cfg, logger, appOptions{Migrate: !noMigrate, KeepOriginals: true})
	if err != nil {
		return err
	}
	defer a.Close()

	processor := jobs.NewInboxProcessor(cfg.InboxDir, a.ingestion, cfg.MaxFiles, logger)
	if once, _ := cmd.Flags().GetBool("once"); once {
		return processor.ProcessJobs(ctx)
	}

	worker := jobs.NewWorker(processor, cfg.InboxInterval, logger)
	go worker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	worker.Stop()
	return nil
}

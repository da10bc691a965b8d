package admin

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/shiftlog/internal/api/handlers"
	"github.com/cloo-solutions/shiftlog/internal/config"
	"github.com/cloo-solutions/shiftlog/internal/jobs"
	"github.com/cloo-solutions/shiftlog/internal/server"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the shiftlog API server. The server starts even when the vector index or language model is unavailable.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("watch-inbox", false, "Also poll the inbox directory for new files")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Debug)

	shutdownTelemetry := initTelemetry(cfg, logger)
	defer shutdownTelemetry()

	if portFlag, _ := cmd.Flags().GetString("port"); cmd.Flags().Changed("port") {
		cfg.Port = portFlag
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	a, err := newApp(ctx, cfg, logger, appOptions{Migrate: !noMigrate, KeepOriginals: true})
	if err != nil {
		return err
	}
	defer a.Close()

	a.ensureIndex(ctx)

	var inboxWorker *jobs.Worker
	if watch, _ := cmd.Flags().GetBool("watch-inbox"); watch {
		processor := jobs.NewInboxProcessor(cfg.InboxDir, a.ingestion, cfg.MaxFiles, logger)
		inboxWorker = jobs.NewWorker(processor, cfg.InboxInterval, logger)
		go inboxWorker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
		MaxBodyBytes:  cfg.MaxUploadBytes,
		ChatHandler:   handlers.NewChatHandler(a.answers, a.index),
		UploadHandler: handlers.NewUploadHandler(a.ingestion, cfg.MaxFiles, "", logger),
		FileHandler:   handlers.NewFileHandler(a.store, logger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("shutting down")

	if inboxWorker != nil {
		inboxWorker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

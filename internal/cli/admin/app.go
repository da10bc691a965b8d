package admin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/chunking"
	"github.com/cloo-solutions/shiftlog/internal/config"
	"github.com/cloo-solutions/shiftlog/internal/database"
	"github.com/cloo-solutions/shiftlog/internal/extraction"
	"github.com/cloo-solutions/shiftlog/internal/llm"
	"github.com/cloo-solutions/shiftlog/internal/repository"
	"github.com/cloo-solutions/shiftlog/internal/service"
	"github.com/cloo-solutions/shiftlog/internal/storage"
	"github.com/cloo-solutions/shiftlog/internal/tables"
	"github.com/cloo-solutions/shiftlog/internal/telemetry"
)

// app holds the wired pipeline shared by every daemon command.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	index     *service.IndexManager
	ingestion *service.IngestionService
	answers   *service.AnswerService
	store     storage.Store
	closers   []func()
}

type appOptions struct {
	// Migrate applies the pgvector registry migrations before use.
	Migrate bool
	// KeepOriginals stores each ingested file with the configured store.
	KeepOriginals bool
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// initTelemetry starts Sentry when a DSN is configured. Default to 10%
// sampling in production, 100% elsewhere.
func initTelemetry(cfg *config.Config, logger *slog.Logger) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	sampleRate := 1.0
	if cfg.Environment == "production" {
		sampleRate = 0.1
	}
	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", "error", err)
		return func() {}
	}
	return shutdown
}

// newApp wires backends and services. Nothing here fails because a remote
// dependency is down: the index reports unavailability from EnsureReady.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	backend, err := a.openBackend(ctx, opts.Migrate)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider := llm.NewProvider(ctx, cfg, logger)
	a.index = service.NewIndexManager(backend, provider.Embedder, cfg.CollectionName, logger)

	if opts.KeepOriginals {
		store, err := a.openStore(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.store = store
	}

	var fileStore service.FileStore
	if a.store != nil {
		fileStore = a.store
	}
	a.ingestion = service.NewIngestionService(
		extraction.NewXLSXReader(),
		tables.NewPDFExtractor(logger),
		chunking.NewChunker(),
		a.index,
		fileStore,
		logger,
	)
	a.answers = service.NewAnswerService(a.index, provider.Generator, logger)
	return a, nil
}

func (a *app) openBackend(ctx context.Context, migrate bool) (service.VectorBackend, error) {
	switch strings.ToLower(a.cfg.VectorBackend) {
	case "redis":
		client := repository.NewRedisClient(repository.RedisConfig{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		store := repository.NewRedisVectorStore(client)
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.logger.Info("vector backend selected", "backend", "redis", "endpoint", store.Endpoint())
		return store, nil

	case "pgvector", "":
		pool, err := database.NewPool(ctx, database.Config{URL: a.cfg.DatabaseURL, Lazy: true})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)

		if migrate {
			if err := database.Migrate(a.cfg.DatabaseURL, a.logger); err != nil {
				a.logger.Warn("migrations not applied, index provisioning will retry", "error", err)
			}
		}
		store := repository.NewPgVectorStore(pool)
		a.logger.Info("vector backend selected", "backend", "pgvector", "endpoint", store.Endpoint())
		return store, nil
	}
	return nil, fmt.Errorf("unknown vector backend %q", a.cfg.VectorBackend)
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	switch strings.ToLower(a.cfg.StorageBackend) {
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        a.cfg.S3Endpoint,
			Region:          a.cfg.S3Region,
			AccessKeyID:     a.cfg.S3AccessKey,
			SecretAccessKey: a.cfg.S3SecretKey,
			Bucket:          a.cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		a.logger.Info("file store ready", "backend", "s3", "bucket", a.cfg.S3Bucket)
		return s3Store, nil

	case "gcs":
		gcsStore, err := storage.NewGCSStore(ctx, storage.GCSConfig{
			Bucket:          a.cfg.GCSBucket,
			CredentialsFile: a.cfg.GCSCredentialsFile,
			Endpoint:        a.cfg.GCSEndpoint,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = gcsStore.Close() })
		a.logger.Info("file store ready", "backend", "gcs", "bucket", a.cfg.GCSBucket)
		return gcsStore, nil

	default:
		local, err := storage.NewLocalStore(a.cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		a.logger.Info("file store ready", "backend", "local", "dir", local.Dir())
		return local, nil
	}
}

// ensureIndex provisions the collection and logs instead of failing.
func (a *app) ensureIndex(ctx context.Context) {
	if err := a.index.EnsureReady(ctx); err != nil {
		a.logger.Warn("vector index not ready", "collection", a.index.Collection(), "error", err)
		return
	}
	a.logger.Info("vector index ready", "collection", a.index.Collection(), "has_documents", a.index.HasDocuments())
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

package server

import (
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/shiftlog/internal/api/handlers"
	"github.com/cloo-solutions/shiftlog/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

const defaultMaxBodyBytes int64 = 100 * 1024 * 1024

type RouterConfig struct {
	Logger        *slog.Logger
	CORSOrigins   []string
	MaxBodyBytes  int64
	ChatHandler   *handlers.ChatHandler
	UploadHandler *handlers.UploadHandler
	FileHandler   *handlers.FileHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", cfg.ChatHandler.Health)
		r.Post("/chat", cfg.ChatHandler.Chat)

		r.Post("/upload", cfg.UploadHandler.Upload)
		r.Post("/upload-folder", cfg.UploadHandler.UploadFolder)
		r.Post("/upload-zip", cfg.UploadHandler.UploadZip)

		r.Get("/files/{filename}", cfg.FileHandler.Get)
	})

	return r
}

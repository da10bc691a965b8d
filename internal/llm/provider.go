// Package llm selects and wraps the embedding and generation providers.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/shiftlog/internal/config"
	"github.com/cloo-solutions/shiftlog/internal/gemini"
	"github.com/cloo-solutions/shiftlog/internal/openai"
	goopenai "github.com/sashabaranov/go-openai"
)

// Embedder turns text into fixed-size vectors.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Generator completes a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider bundles the embedding and generation capabilities of one vendor.
type Provider struct {
	Name      string
	Embedder  Embedder
	Generator Generator
}

// NewProvider builds the configured provider. Missing credentials do not fail
// startup: the returned provider reports the problem on first use instead.
func NewProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Provider {
	var (
		p   *Provider
		err error
	)

	switch cfg.LLMProvider {
	case "openai":
		p, err = newOpenAI(cfg)
	case "gemini", "":
		p, err = newGemini(ctx, cfg)
	default:
		err = fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	if err != nil {
		logger.Warn("language model provider unavailable, answering and embedding will fail until configured",
			"provider", cfg.LLMProvider, "error", err)
		u := &Unavailable{Err: err, Dims: cfg.EmbeddingDimension}
		return &Provider{Name: "unavailable", Embedder: u, Generator: u}
	}

	if cfg.EmbedRatePerSec > 0 {
		limiter := NewRateLimiter(cfg.EmbedRatePerSec, cfg.EmbedBurst)
		p.Embedder = &RateLimitedEmbedder{next: p.Embedder, limiter: limiter}
		p.Generator = &RateLimitedGenerator{next: p.Generator, limiter: limiter}
	}

	logger.Info("language model provider ready", "provider", p.Name, "dimensions", p.Embedder.Dimensions())
	return p
}

func newGemini(ctx context.Context, cfg *config.Config) (*Provider, error) {
	if !cfg.HasGoogleCredentials() {
		return nil, fmt.Errorf("SHIFTLOG_GOOGLE_API_KEY is not set")
	}
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:          cfg.GoogleAPIKey,
		Backend:         cfg.GoogleBackend,
		Project:         cfg.GoogleProject,
		Location:        cfg.GoogleLocation,
		EmbeddingModel:  cfg.EmbeddingModel,
		Dimensions:      cfg.EmbeddingDimension,
		GenerationModel: cfg.GenerationModel,
		Temperature:     cfg.GenerationTemperature,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{Name: "gemini", Embedder: client, Generator: client}, nil
}

func newOpenAI(cfg *config.Config) (*Provider, error) {
	if !cfg.HasOpenAI() {
		return nil, openai.ErrNoAPIKey
	}
	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimension,
		ChatModel:           cfg.GenerationModel,
		Temperature:         cfg.GenerationTemperature,
	})
	return &Provider{Name: "openai", Embedder: client, Generator: client}, nil
}

// Unavailable stands in for a provider that could not be configured.
type Unavailable struct {
	Err  error
	Dims int
}

func (u *Unavailable) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: %w", u.Err)
}

func (u *Unavailable) Dimensions() int {
	return u.Dims
}

func (u *Unavailable) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("generation provider not configured: %w", u.Err)
}

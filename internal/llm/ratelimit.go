package llm

import (
	"context"

	"golang.org/x/time/rate"
)

const defaultBurst = 5

// NewRateLimiter returns a token bucket allowing perSecond requests with the
// given burst. A non-positive burst falls back to a small default.
func NewRateLimiter(perSecond float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// RateLimitedEmbedder waits for a token before each embedding call.
type RateLimitedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
}

func NewRateLimitedEmbedder(next Embedder, limiter *rate.Limiter) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{next: next, limiter: limiter}
}

func (e *RateLimitedEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.next.GenerateEmbedding(ctx, text)
}

func (e *RateLimitedEmbedder) Dimensions() int {
	return e.next.Dimensions()
}

// RateLimitedGenerator shares the provider quota with the embedder.
type RateLimitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

func NewRateLimitedGenerator(next Generator, limiter *rate.Limiter) *RateLimitedGenerator {
	return &RateLimitedGenerator{next: next, limiter: limiter}
}

func (g *RateLimitedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return g.next.Generate(ctx, prompt)
}

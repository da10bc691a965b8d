// Package gemini provides embeddings and text generation backed by Google's
// Gemini models through the unified genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	DefaultEmbeddingModel      = "text-embedding-004"
	DefaultEmbeddingDimensions = 768
	DefaultGenerationModel     = "gemini-1.5-flash"
	DefaultTemperature         = 0.1
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrNoEmbedding     = errors.New("no embedding returned")
	ErrEmptyResponse   = errors.New("model returned no text")
)

// ModelsAPI is the subset of genai.Models the client calls.
type ModelsAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config controls model selection.
type Config struct {
	APIKey          string
	Backend         string // "gemini" or "vertex"
	Project         string
	Location        string
	EmbeddingModel  string
	Dimensions      int
	GenerationModel string
	Temperature     float32
}

// Client embeds and generates text with Gemini models.
type Client struct {
	models          ModelsAPI
	embeddingModel  string
	dimensions      int
	generationModel string
	temperature     float32
}

// NewClient connects to the Gemini API or Vertex AI depending on cfg.Backend.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Backend == "vertex" {
		cc = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.Project,
			Location: cfg.Location,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return NewClientWithModels(client.Models, cfg), nil
}

// NewClientWithModels builds a client over an existing models API.
func NewClientWithModels(models ModelsAPI, cfg Config) *Client {
	c := &Client{
		models:          models,
		embeddingModel:  cfg.EmbeddingModel,
		dimensions:      cfg.Dimensions,
		generationModel: cfg.GenerationModel,
		temperature:     cfg.Temperature,
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	if c.dimensions <= 0 {
		c.dimensions = DefaultEmbeddingDimensions
	}
	if c.generationModel == "" {
		c.generationModel = DefaultGenerationModel
	}
	if c.temperature <= 0 {
		c.temperature = DefaultTemperature
	}
	return c
}

// Dimensions returns the embedding size the client enforces.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding embeds text and checks the vector size.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrNoEmbedding
	}

	values := resp.Embeddings[0].Values
	if len(values) != c.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(values))
	}
	return values, nil
}

// Generate returns the model's text response to prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	resp, err := c.models.GenerateContent(ctx, c.generationModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	out := resp.Text()
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

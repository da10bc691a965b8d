package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type MockModels struct {
	mock.Mock
}

func (m *MockModels) EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.EmbedContentResponse), args.Error(1)
}

func (m *MockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

func embedResponse(n int) *genai.EmbedContentResponse {
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: make([]float32, n)}},
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestNewClientWithModels_Defaults(t *testing.T) {
	c := NewClientWithModels(new(MockModels), Config{})

	assert.Equal(t, DefaultEmbeddingModel, c.embeddingModel)
	assert.Equal(t, DefaultGenerationModel, c.generationModel)
	assert.Equal(t, DefaultEmbeddingDimensions, c.Dimensions())
	assert.InDelta(t, DefaultTemperature, c.temperature, 1e-6)
}

func TestClient_GenerateEmbedding(t *testing.T) {
	models := new(MockModels)
	c := NewClientWithModels(models, Config{})
	ctx := context.Background()

	models.On("EmbedContent", ctx, DefaultEmbeddingModel, genai.Text("gate 3 alarm"), mock.MatchedBy(func(cfg *genai.EmbedContentConfig) bool {
		return cfg.OutputDimensionality != nil && *cfg.OutputDimensionality == 768
	})).Return(embedResponse(768), nil)

	vec, err := c.GenerateEmbedding(ctx, "gate 3 alarm")
	require.NoError(t, err)
	assert.Len(t, vec, 768)
	models.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty text", func(t *testing.T) {
		_, err := NewClientWithModels(new(MockModels), Config{}).GenerateEmbedding(ctx, "")
		assert.Equal(t, ErrEmptyText, err)
	})

	t.Run("api error", func(t *testing.T) {
		models := new(MockModels)
		models.On("EmbedContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota"))
		_, err := NewClientWithModels(models, Config{}).GenerateEmbedding(ctx, "x")
		assert.ErrorContains(t, err, "failed to create embedding")
	})

	t.Run("no embeddings", func(t *testing.T) {
		models := new(MockModels)
		models.On("EmbedContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&genai.EmbedContentResponse{}, nil)
		_, err := NewClientWithModels(models, Config{}).GenerateEmbedding(ctx, "x")
		assert.ErrorIs(t, err, ErrNoEmbedding)
	})

	t.Run("wrong dimensions", func(t *testing.T) {
		models := new(MockModels)
		models.On("EmbedContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(embedResponse(3072), nil)
		_, err := NewClientWithModels(models, Config{}).GenerateEmbedding(ctx, "x")
		assert.ErrorIs(t, err, ErrWrongDimensions)
	})
}

func TestClient_Generate(t *testing.T) {
	models := new(MockModels)
	c := NewClientWithModels(models, Config{GenerationModel: "gemini-test", Temperature: 0.2})
	ctx := context.Background()

	models.On("GenerateContent", ctx, "gemini-test", genai.Text("hello"), mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
		return cfg.Temperature != nil && *cfg.Temperature == float32(0.2)
	})).Return(textResponse("hi there"), nil)

	out, err := c.Generate(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
	models.AssertExpectations(t)
}

func TestClient_Generate_EmptyResponse(t *testing.T) {
	models := new(MockModels)
	models.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&genai.GenerateContentResponse{}, nil)

	_, err := NewClientWithModels(models, Config{}).Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

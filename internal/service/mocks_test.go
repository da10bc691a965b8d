package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockVectorBackend is a mock implementation of VectorBackend
type MockVectorBackend struct {
	mock.Mock
}

func (m *MockVectorBackend) Endpoint() string {
	return "mock://index"
}

func (m *MockVectorBackend) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockVectorBackend) ListCollections(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockVectorBackend) CreateCollection(ctx context.Context, c domain.IndexCollection) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockVectorBackend) DescribeCollection(ctx context.Context, name string) (*domain.IndexCollection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexCollection), args.Error(1)
}

func (m *MockVectorBackend) Upsert(ctx context.Context, collection string, points []domain.IndexPoint) error {
	return m.Called(ctx, collection, points).Error(0)
}

func (m *MockVectorBackend) Search(ctx context.Context, collection string, vector []float32, k int) ([]domain.ScoredPoint, error) {
	args := m.Called(ctx, collection, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredPoint), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
	dims int
}

func newMockEmbedder(dims int) *MockEmbeddingClient {
	return &MockEmbeddingClient{dims: dims}
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) Dimensions() int {
	return m.dims
}

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) Ready() bool {
	return m.Called().Bool(0)
}

func (m *MockRetriever) EnsureReady(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockRetriever) HasDocuments() bool {
	return m.Called().Bool(0)
}

func (m *MockRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.TextUnit, error) {
	args := m.Called(ctx, query, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TextUnit), args.Error(1)
}

// MockTableExtractor is a mock implementation of TableExtractor
type MockTableExtractor struct {
	mock.Mock
}

func (m *MockTableExtractor) ExtractWorkbook(ctx context.Context, path string) (domain.Workbook, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(domain.Workbook), args.Error(1)
}

// MockDocumentIndex is a mock implementation of DocumentIndex
type MockDocumentIndex struct {
	mock.Mock
}

func (m *MockDocumentIndex) Ready() bool {
	return m.Called().Bool(0)
}

func (m *MockDocumentIndex) EnsureReady(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockDocumentIndex) AddDocuments(ctx context.Context, units []domain.TextUnit) error {
	return m.Called(ctx, units).Error(0)
}

// MockFileStore is a mock implementation of FileStore
type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, localPath, filename string) (string, error) {
	args := m.Called(ctx, localPath, filename)
	return args.String(0), args.Error(1)
}

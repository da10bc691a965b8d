package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func vec(dim int, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func wantCollection(dim int) domain.IndexCollection {
	return domain.IndexCollection{Name: "building_logs", Dimension: dim, Distance: domain.DistanceCosine}
}

func readyManager(t *testing.T, backend *MockVectorBackend, embedder *MockEmbeddingClient, count int64) *IndexManager {
	t.Helper()
	backend.On("Ping", mock.Anything).Return(nil).Once()
	backend.On("ListCollections", mock.Anything).Return([]string{"building_logs"}, nil).Once()
	c := wantCollection(embedder.Dimensions())
	c.Count = count
	backend.On("DescribeCollection", mock.Anything, "building_logs").Return(&c, nil).Once()

	m := NewIndexManager(backend, embedder, "building_logs", testLogger())
	require.NoError(t, m.EnsureReady(context.Background()))
	return m
}

func TestIndexManager_EnsureReady_CreatesMissingCollection(t *testing.T) {
	backend := new(MockVectorBackend)
	embedder := newMockEmbedder(768)

	backend.On("Ping", mock.Anything).Return(nil)
	backend.On("ListCollections", mock.Anything).Return([]string{"other"}, nil)
	backend.On("CreateCollection", mock.Anything, wantCollection(768)).Return(nil)
	c := wantCollection(768)
	backend.On("DescribeCollection", mock.Anything, "building_logs").Return(&c, nil)

	m := NewIndexManager(backend, embedder, "", testLogger())
	assert.Equal(t, "building_logs", m.Collection())
	assert.False(t, m.Ready())

	require.NoError(t, m.EnsureReady(context.Background()))
	assert.True(t, m.Ready())
	assert.False(t, m.HasDocuments())
	backend.AssertExpectations(t)
}

func TestIndexManager_EnsureReady_Idempotent(t *testing.T) {
	backend := new(MockVectorBackend)
	embedder := newMockEmbedder(768)
	m := readyManager(t, backend, embedder, 5)

	require.NoError(t, m.EnsureReady(context.Background()))
	require.NoError(t, m.EnsureReady(context.Background()))

	assert.True(t, m.HasDocuments())
	backend.AssertNumberOfCalls(t, "Ping", 1)
	backend.AssertNotCalled(t, "CreateCollection", mock.Anything, mock.Anything)
}

func TestIndexManager_EnsureReady_ExistingCollectionRaceIsNotAnError(t *testing.T) {
	backend := new(MockVectorBackend)
	embedder := newMockEmbedder(768)

	backend.On("Ping", mock.Anything).Return(nil)
	backend.On("ListCollections", mock.Anything).Return([]string{}, nil)
	backend.On("CreateCollection", mock.Anything, mock.Anything).Return(domain.ErrCollectionExists)
	c := wantCollection(768)
	backend.On("DescribeCollection", mock.Anything, "building_logs").Return(&c, nil)

	m := NewIndexManager(backend, embedder, "building_logs", testLogger())
	require.NoError(t, m.EnsureReady(context.Background()))
	assert.True(t, m.Ready())
}

func TestIndexManager_EnsureReady_UnreachableNamesEndpoint(t *testing.T) {
	backend := new(MockVectorBackend)
	backend.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	m := NewIndexManager(backend, newMockEmbedder(768), "building_logs", testLogger())
	err := m.EnsureReady(context.Background())

	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Contains(t, err.Error(), "mock://index")
	assert.False(t, m.Ready())
}

func TestIndexManager_EnsureReady_DimensionMismatchIsFatal(t *testing.T) {
	backend := new(MockVectorBackend)
	backend.On("Ping", mock.Anything).Return(nil).Once()
	backend.On("ListCollections", mock.Anything).Return([]string{"building_logs"}, nil).Once()
	existing := wantCollection(1536)
	backend.On("DescribeCollection", mock.Anything, "building_logs").Return(&existing, nil).Once()

	m := NewIndexManager(backend, newMockEmbedder(768), "building_logs", testLogger())

	err := m.EnsureReady(context.Background())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	err = m.EnsureReady(context.Background())
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.False(t, m.Ready())
	backend.AssertNumberOfCalls(t, "Ping", 1)
}

func TestIndexManager_AddDocuments(t *testing.T) {
	backend := new(MockVectorBackend)
	embedder := newMockEmbedder(4)
	m := readyManager(t, backend, embedder, 0)
	assert.False(t, m.HasDocuments())

	units := []domain.TextUnit{
		{Content: "boiler ok", Metadata: domain.UnitMetadata{Filename: "a.xlsx", SourceKind: domain.SourceKindExcel, Extra: map[string]string{domain.MetaChunkIndex: "0"}}},
		{Content: "gate alarm", Metadata: domain.UnitMetadata{Filename: "a.xlsx", SourceKind: domain.SourceKindExcel, Extra: map[string]string{domain.MetaChunkIndex: "1"}}},
	}
	embedder.On("GenerateEmbedding", mock.Anything, "boiler ok").Return(vec(4, 0), nil)
	embedder.On("GenerateEmbedding", mock.Anything, "gate alarm").Return(vec(4, 1), nil)
	backend.On("Upsert", mock.Anything, "building_logs", mock.MatchedBy(func(points []domain.IndexPoint) bool {
		return len(points) == 2 &&
			points[0].ID == PointID(units[0]) &&
			points[0].Content == "boiler ok" &&
			points[0].Metadata[domain.MetaFilename] == "a.xlsx" &&
			points[1].Metadata[domain.MetaSourceKind] == "excel_extraction"
	})).Return(nil)

	require.NoError(t, m.AddDocuments(context.Background(), units))
	assert.True(t, m.HasDocuments())
	backend.AssertExpectations(t)
	embedder.AssertExpectations(t)
}

func TestIndexManager_AddDocuments_EmptyInput(t *testing.T) {
	backend := new(MockVectorBackend)
	m := NewIndexManager(backend, newMockEmbedder(4), "building_logs", testLogger())

	require.NoError(t, m.AddDocuments(context.Background(), nil))
	backend.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexManager_AddDocuments_NotReadyIsNoop(t *testing.T) {
	backend := new(MockVectorBackend)
	embedder := newMockEmbedder(4)
	m := NewIndexManager(backend, embedder, "building_logs", testLogger())

	err := m.AddDocuments(context.Background(), []domain.TextUnit{{Content: "x"}})
	require.NoError(t, err)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	assert.False(t, m.HasDocuments())
}

func TestIndexManager_AddDocuments_Errors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		backend := new(MockVectorBackend)
		embedder := newMockEmbedder(4)
		m := readyManager(t, backend, embedder, 0)
		embedder.On("GenerateEmbedding", mock.Anything, "x").Return(nil, errors.New("quota"))

		err := m.AddDocuments(context.Background(), []domain.TextUnit{{Content: "x"}})
		assert.ErrorContains(t, err, "quota")
		assert.False(t, m.HasDocuments())
	})

	t.Run("wrong vector length", func(t *testing.T) {
		backend := new(MockVectorBackend)
		embedder := newMockEmbedder(4)
		m := readyManager(t, backend, embedder, 0)
		embedder.On("GenerateEmbedding", mock.Anything, "x").Return([]float32{1, 2}, nil)

		err := m.AddDocuments(context.Background(), []domain.TextUnit{{Content: "x"}})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		backend.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("upsert failure", func(t *testing.T) {
		backend := new(MockVectorBackend)
		embedder := newMockEmbedder(4)
		m := readyManager(t, backend, embedder, 0)
		embedder.On("GenerateEmbedding", mock.Anything, "x").Return(vec(4, 2), nil)
		backend.On("Upsert", mock.Anything, "building_logs", mock.Anything).Return(errors.New("disk full"))

		err := m.AddDocuments(context.Background(), []domain.TextUnit{{Content: "x"}})
		assert.ErrorContains(t, err, "disk full")
		assert.False(t, m.HasDocuments())
	})
}

func TestIndexManager_Retrieve(t *testing.T) {
	backend := new(MockVectorBackend)
	embedder := newMockEmbedder(4)
	m := readyManager(t, backend, embedder, 3)

	embedder.On("GenerateEmbedding", mock.Anything, "boiler").Return(vec(4, 0), nil)
	backend.On("Search", mock.Anything, "building_logs", vec(4, 0), 3).Return([]domain.ScoredPoint{
		{ID: "1", Content: "boiler ok", Score: 0.9, Metadata: map[string]string{"filename": "a.xlsx", "pdf_path": "abc.xlsx", "chunk_index": "0"}},
		{ID: "2", Content: "boiler low", Score: 0.7, Metadata: map[string]string{"filename": "b.pdf"}},
	}, nil)

	units, err := m.Retrieve(context.Background(), "boiler", 3)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "a.xlsx", units[0].Metadata.Filename)
	assert.Equal(t, "abc.xlsx", units[0].Metadata.StoredPath)
	assert.Equal(t, "0", units[0].Metadata.Extra["chunk_index"])
	assert.InDelta(t, 0.9, units[0].Score, 1e-9)
	assert.GreaterOrEqual(t, units[0].Score, units[1].Score)
}

func TestIndexManager_Retrieve_NotReadyIsEmpty(t *testing.T) {
	embedder := newMockEmbedder(4)
	m := NewIndexManager(new(MockVectorBackend), embedder, "building_logs", testLogger())

	units, err := m.Retrieve(context.Background(), "boiler", 3)
	require.NoError(t, err)
	assert.Empty(t, units)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

func TestPointID_Deterministic(t *testing.T) {
	u := domain.TextUnit{Content: "boiler ok", Metadata: domain.UnitMetadata{Filename: "a.xlsx", Extra: map[string]string{domain.MetaChunkIndex: "0"}}}
	other := u
	other.Metadata = u.Metadata.Clone()
	other.Metadata.Extra[domain.MetaChunkIndex] = "1"

	assert.Equal(t, PointID(u), PointID(u))
	assert.Len(t, PointID(u), 32)
	assert.NotEqual(t, PointID(u), PointID(other))
}

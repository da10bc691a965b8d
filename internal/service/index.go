package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// VectorBackend is the vector-index service the manager talks to.
type VectorBackend interface {
	Endpoint() string
	Ping(ctx context.Context) error
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, c domain.IndexCollection) error
	DescribeCollection(ctx context.Context, name string) (*domain.IndexCollection, error)
	Upsert(ctx context.Context, collection string, points []domain.IndexPoint) error
	Search(ctx context.Context, collection string, vector []float32, k int) ([]domain.ScoredPoint, error)
}

// IndexManager owns the connection state and the collection of the vector
// index. It is safe for concurrent use.
type IndexManager struct {
	backend    VectorBackend
	embedder   EmbeddingClient
	collection domain.IndexCollection
	logger     *slog.Logger

	mu       sync.RWMutex
	ready    bool
	hasDocs  bool
	fatalErr error
}

func NewIndexManager(backend VectorBackend, embedder EmbeddingClient, collection string, logger *slog.Logger) *IndexManager {
	if collection == "" {
		collection = domain.DefaultCollectionName
	}
	dim := embedder.Dimensions()
	if dim <= 0 {
		dim = domain.DefaultDimension
	}
	return &IndexManager{
		backend:  backend,
		embedder: embedder,
		collection: domain.IndexCollection{
			Name:      collection,
			Dimension: dim,
			Distance:  domain.DistanceCosine,
		},
		logger: logger.With("component", "index", "collection", collection),
	}
}

// EnsureReady verifies connectivity and provisions the collection if absent.
// A dimension or metric mismatch is remembered and returned on every later
// call without touching the backend again.
func (m *IndexManager) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fatalErr != nil {
		return m.fatalErr
	}
	if m.ready {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "index.ensure_ready", telemetry.SpanAttributes{Collection: m.collection.Name})
	defer span.End()

	if err := m.backend.Ping(ctx); err != nil {
		err = domain.Wrap(domain.ErrIndexUnavailable, fmt.Errorf("cannot reach vector index at %s: %w", m.backend.Endpoint(), err))
		span.SetError(err)
		return err
	}

	names, err := m.backend.ListCollections(ctx)
	if err != nil {
		err = domain.Wrap(domain.ErrIndexUnavailable, fmt.Errorf("failed to list collections at %s: %w", m.backend.Endpoint(), err))
		span.SetError(err)
		return err
	}

	if !contains(names, m.collection.Name) {
		err := m.backend.CreateCollection(ctx, m.collection)
		if err != nil && !errors.Is(err, domain.ErrCollectionExists) {
			span.SetError(err)
			return fmt.Errorf("failed to create collection %q: %w", m.collection.Name, err)
		}
		if err == nil {
			m.logger.Info("created collection", "dimension", m.collection.Dimension, "distance", m.collection.Distance)
		}
	}

	existing, err := m.backend.DescribeCollection(ctx, m.collection.Name)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to describe collection %q: %w", m.collection.Name, err)
	}
	if err := existing.Compatible(m.collection); err != nil {
		m.fatalErr = err
		span.SetError(err)
		return err
	}

	m.ready = true
	m.hasDocs = existing.Count > 0
	m.logger.Info("vector index ready", "endpoint", m.backend.Endpoint(), "documents", existing.Count)
	return nil
}

// Ready reports whether EnsureReady has succeeded.
func (m *IndexManager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// HasDocuments reports whether the collection is known to hold any points.
func (m *IndexManager) HasDocuments() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasDocs
}

func (m *IndexManager) Collection() string {
	return m.collection.Name
}

// AddDocuments embeds and upserts units. It is a logged no-op when the index
// is not ready.
func (m *IndexManager) AddDocuments(ctx context.Context, units []domain.TextUnit) error {
	if len(units) == 0 {
		return nil
	}
	if !m.Ready() {
		m.logger.Warn("vector index not ready, skipping documents", "units", len(units))
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "index.add_documents", telemetry.SpanAttributes{
		Collection: m.collection.Name,
		Filename:   units[0].Metadata.Filename,
	})
	defer span.End()

	points := make([]domain.IndexPoint, 0, len(units))
	for i, u := range units {
		vec, err := m.embedder.GenerateEmbedding(ctx, u.Content)
		if err != nil {
			span.SetError(err)
			return fmt.Errorf("failed to embed unit %d of %s: %w", i, u.Metadata.Filename, err)
		}
		if len(vec) != m.collection.Dimension {
			err := domain.Wrap(domain.ErrDimensionMismatch, fmt.Errorf("embedding has %d dimensions, collection %q has %d", len(vec), m.collection.Name, m.collection.Dimension))
			span.SetError(err)
			return err
		}

		id := u.ID
		if id == "" {
			id = PointID(u)
		}
		points = append(points, domain.IndexPoint{
			ID:       id,
			Vector:   vec,
			Content:  u.Content,
			Metadata: u.Metadata.ToMap(),
		})
	}

	if err := m.backend.Upsert(ctx, m.collection.Name, points); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}

	m.mu.Lock()
	m.hasDocs = true
	m.mu.Unlock()

	m.logger.Info("indexed documents", "filename", units[0].Metadata.Filename, "units", len(points))
	return nil
}

// Retrieve returns the k units most similar to query, best first. An index
// that is not ready yields no units and no error.
func (m *IndexManager) Retrieve(ctx context.Context, query string, k int) ([]domain.TextUnit, error) {
	if !m.Ready() || k <= 0 {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "index.retrieve", telemetry.SpanAttributes{
		Collection: m.collection.Name,
		Operation:  "search",
	})
	defer span.End()

	vec, err := m.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := m.backend.Search(ctx, m.collection.Name, vec, k)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	units := make([]domain.TextUnit, 0, len(hits))
	for _, h := range hits {
		units = append(units, domain.TextUnit{
			ID:       h.ID,
			Content:  h.Content,
			Metadata: domain.MetadataFromMap(h.Metadata),
			Score:    h.Score,
		})
	}
	return units, nil
}

// PointID derives a stable identifier from a unit's filename, chunk index and
// content so re-ingesting the same file overwrites its points.
func PointID(u domain.TextUnit) string {
	h := sha256.New()
	h.Write([]byte(u.Metadata.Filename))
	h.Write([]byte{0})
	h.Write([]byte(u.Metadata.Extra[domain.MetaChunkIndex]))
	h.Write([]byte{0})
	h.Write([]byte(u.Content))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

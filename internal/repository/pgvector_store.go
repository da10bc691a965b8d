package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const tablePrefix = "vc_"

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,54}$`)

// PgVectorStore keeps each collection in its own pgvector table.
type PgVectorStore struct {
	pool     *pgxpool.Pool
	registry *CollectionRegistry
	tx       *TxRunner
}

func NewPgVectorStore(pool *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{
		pool:     pool,
		registry: NewCollectionRegistry(pool),
		tx:       NewTxRunner(pool),
	}
}

// Endpoint names the database host for diagnostics.
func (s *PgVectorStore) Endpoint() string {
	cc := s.pool.Config().ConnConfig
	return "postgres://" + net.JoinHostPort(cc.Host, strconv.Itoa(int(cc.Port))) + "/" + cc.Database
}

func (s *PgVectorStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PgVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	return s.registry.List(ctx)
}

func (s *PgVectorStore) CreateCollection(ctx context.Context, c domain.IndexCollection) error {
	if err := domain.ValidateIndexCollection(&c); err != nil {
		return err
	}
	table, err := tableName(c.Name)
	if err != nil {
		return err
	}
	index := pgx.Identifier{tablePrefix + strings.ToLower(c.Name) + "_embedding_idx"}.Sanitize()

	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Collections().Insert(ctx, c); err != nil {
			return err
		}

		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table, c.Dimension)
		if err := repos.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create collection table: %w", err)
		}

		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`, index, table)
		if err := repos.Exec(ctx, idx); err != nil {
			return fmt.Errorf("failed to create collection index: %w", err)
		}
		return nil
	})
}

func (s *PgVectorStore) DescribeCollection(ctx context.Context, name string) (*domain.IndexCollection, error) {
	c, err := s.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	table, err := tableName(name)
	if err != nil {
		return nil, err
	}

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+table).Scan(&c.Count); err != nil {
		return nil, fmt.Errorf("failed to count collection: %w", err)
	}
	return c, nil
}

// Upsert writes points keyed by ID, replacing existing rows.
func (s *PgVectorStore) Upsert(ctx context.Context, collection string, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	c, err := s.registry.Get(ctx, collection)
	if err != nil {
		return err
	}
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, table)

	batch := &pgx.Batch{}
	for _, p := range points {
		if len(p.Vector) != c.Dimension {
			return domain.Wrap(domain.ErrDimensionMismatch, fmt.Errorf("point %s has %d dimensions, collection %q has %d", p.ID, len(p.Vector), c.Name, c.Dimension))
		}
		meta, err := json.Marshal(nonNilMetadata(p.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		batch.Queue(query, p.ID, p.Content, meta, pgvector.NewVector(p.Vector))
	}

	br := s.pool.SendBatch(ctx, batch)
	for range points {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}
	return br.Close()
}

// Search returns the k nearest points by cosine distance, most similar first.
func (s *PgVectorStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]domain.ScoredPoint, error) {
	if k <= 0 {
		return nil, nil
	}
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		 FROM %s
		 ORDER BY embedding <=> $1
		 LIMIT $2`, table),
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredPoint
	for rows.Next() {
		var (
			hit  domain.ScoredPoint
			meta []byte
		)
		if err := rows.Scan(&hit.ID, &hit.Content, &meta, &hit.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &hit.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", hit.ID, err)
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func tableName(collection string) (string, error) {
	if !collectionNamePattern.MatchString(collection) {
		return "", domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid collection name %q", collection))
	}
	return pgx.Identifier{tablePrefix + strings.ToLower(collection)}.Sanitize(), nil
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

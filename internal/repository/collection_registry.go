package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// CollectionRegistry persists collection settings in vector_collections.
type CollectionRegistry struct {
	db dbtx
}

func NewCollectionRegistry(pool *pgxpool.Pool) *CollectionRegistry {
	return &CollectionRegistry{db: pool}
}

func NewCollectionRegistryWithTx(tx dbtx) *CollectionRegistry {
	return &CollectionRegistry{db: tx}
}

func (r *CollectionRegistry) Insert(ctx context.Context, c domain.IndexCollection) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO vector_collections (name, dimension, distance) VALUES ($1, $2, $3)`,
		c.Name, c.Dimension, string(c.Distance),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrCollectionExists
		}
		return fmt.Errorf("failed to register collection: %w", err)
	}
	return nil
}

func (r *CollectionRegistry) Get(ctx context.Context, name string) (*domain.IndexCollection, error) {
	var (
		c        domain.IndexCollection
		distance string
	)
	err := r.db.QueryRow(ctx,
		`SELECT name, dimension, distance FROM vector_collections WHERE name = $1`,
		name,
	).Scan(&c.Name, &c.Dimension, &distance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionMissing
		}
		return nil, err
	}
	c.Distance = domain.DistanceMetric(distance)
	return &c, nil
}

func (r *CollectionRegistry) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM vector_collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

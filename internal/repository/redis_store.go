package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultEFConstruction = 200
	defaultM              = 16

	registryKeyPrefix = "shiftlog:collection:"

	fieldContent  = "content"
	fieldVector   = "vector"
	fieldFilename = "filename"
	fieldMetadata = "metadata"
	fieldScore    = "score"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewRedisClient connects with RESP2 so FT.* replies arrive as flat arrays.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2,
	})
}

// RedisVectorStore keeps each collection as a RediSearch HNSW index over
// hashes sharing the collection's key prefix.
type RedisVectorStore struct {
	client *redis.Client
}

func NewRedisVectorStore(client *redis.Client) *RedisVectorStore {
	return &RedisVectorStore{client: client}
}

func (s *RedisVectorStore) Endpoint() string {
	return "redis://" + s.client.Options().Addr
}

func (s *RedisVectorStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisVectorStore) Close() error {
	return s.client.Close()
}

func (s *RedisVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.Do(ctx, "FT._LIST").StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	return names, nil
}

func (s *RedisVectorStore) CreateCollection(ctx context.Context, c domain.IndexCollection) error {
	if err := domain.ValidateIndexCollection(&c); err != nil {
		return err
	}
	if _, err := s.client.Do(ctx, "FT.INFO", c.Name).Result(); err == nil {
		return domain.ErrCollectionExists
	} else if !isUnknownIndex(err) {
		return fmt.Errorf("failed to inspect index: %w", err)
	}

	// FT.CREATE <name> ON HASH PREFIX 1 <name>:
	//   SCHEMA vector VECTOR HNSW 10 TYPE FLOAT32 DIM <d> DISTANCE_METRIC COSINE EF_CONSTRUCTION 200 M 16
	//          content TEXT filename TAG
	err := s.client.Do(ctx, "FT.CREATE", c.Name,
		"ON", "HASH",
		"PREFIX", "1", keyPrefix(c.Name),
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(c.Dimension),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(defaultEFConstruction),
		"M", strconv.Itoa(defaultM),
		fieldContent, "TEXT",
		fieldFilename, "TAG",
	).Err()
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return s.client.HSet(ctx, registryKeyPrefix+c.Name,
		"dimension", c.Dimension,
		"distance", string(c.Distance),
	).Err()
}

func (s *RedisVectorStore) DescribeCollection(ctx context.Context, name string) (*domain.IndexCollection, error) {
	info, err := s.client.Do(ctx, "FT.INFO", name).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, domain.ErrCollectionMissing
		}
		return nil, fmt.Errorf("failed to get index info: %w", err)
	}

	c := parseIndexInfo(name, info)

	reg, err := s.client.HGetAll(ctx, registryKeyPrefix+name).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read collection registry: %w", err)
	}
	if dim, err := strconv.Atoi(reg["dimension"]); err == nil {
		c.Dimension = dim
	}
	if d := reg["distance"]; d != "" {
		c.Distance = domain.DistanceMetric(d)
	}
	return c, nil
}

// Upsert writes one hash per point in a single pipeline.
func (s *RedisVectorStore) Upsert(ctx context.Context, collection string, points []domain.IndexPoint) error {
	if len(points) == 0 {
		return nil
	}
	c, err := s.DescribeCollection(ctx, collection)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for _, p := range points {
		if c.Dimension > 0 && len(p.Vector) != c.Dimension {
			return domain.Wrap(domain.ErrDimensionMismatch, fmt.Errorf("point %s has %d dimensions, collection %q has %d", p.ID, len(p.Vector), collection, c.Dimension))
		}
		meta, err := json.Marshal(nonNilMetadata(p.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		pipe.HSet(ctx, keyPrefix(collection)+p.ID,
			fieldContent, p.Content,
			fieldVector, EncodeVector(p.Vector),
			fieldFilename, p.Metadata[domain.MetaFilename],
			fieldMetadata, meta,
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search runs a KNN query. RediSearch reports cosine distance, which is
// converted to similarity.
func (s *RedisVectorStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]domain.ScoredPoint, error) {
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", k, fieldVector, fieldScore)
	result, err := s.client.Do(ctx, "FT.SEARCH", collection, query,
		"PARAMS", "2", "query_vector", EncodeVector(vector),
		"SORTBY", fieldScore,
		"RETURN", "3", fieldContent, fieldMetadata, fieldScore,
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, domain.ErrCollectionMissing
		}
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return parseSearchReply(keyPrefix(collection), result)
}

// EncodeVector packs a vector as little-endian FLOAT32, the layout RediSearch expects.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func keyPrefix(collection string) string {
	return collection + ":"
}

func isUnknownIndex(err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index name") || strings.Contains(msg, "no such index")
}

// parseSearchReply reads a RESP2 FT.SEARCH reply: count, then key and
// field list pairs.
func parseSearchReply(prefix string, result any) ([]domain.ScoredPoint, error) {
	values, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected search reply %T", result)
	}

	var hits []domain.ScoredPoint
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}

		hit := domain.ScoredPoint{ID: strings.TrimPrefix(key, prefix)}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			val, _ := fields[j+1].(string)
			switch name {
			case fieldContent:
				hit.Content = val
			case fieldMetadata:
				if val != "" {
					if err := json.Unmarshal([]byte(val), &hit.Metadata); err != nil {
						return nil, fmt.Errorf("failed to decode metadata for %s: %w", hit.ID, err)
					}
				}
			case fieldScore:
				if d, err := strconv.ParseFloat(val, 64); err == nil {
					hit.Score = 1 - d
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// parseIndexInfo pulls the document count and vector settings out of a
// RESP2 FT.INFO reply.
func parseIndexInfo(name string, info any) *domain.IndexCollection {
	c := &domain.IndexCollection{Name: name, Distance: domain.DistanceCosine}

	values, ok := info.([]any)
	if !ok {
		return c
	}
	for i := 0; i+1 < len(values); i += 2 {
		key, _ := values[i].(string)
		switch key {
		case "num_docs":
			c.Count = toInt64(values[i+1])
		case "attributes":
			attrs, _ := values[i+1].([]any)
			for _, a := range attrs {
				parseVectorAttribute(c, a)
			}
		}
	}
	return c
}

func parseVectorAttribute(c *domain.IndexCollection, attr any) {
	fields, ok := attr.([]any)
	if !ok {
		return
	}
	var isVector bool
	var dim int64
	var metric string
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		switch strings.ToLower(key) {
		case "type":
			isVector = fmt.Sprint(fields[i+1]) == "VECTOR"
		case "dim":
			dim = toInt64(fields[i+1])
		case "distance_metric":
			metric = strings.ToLower(fmt.Sprint(fields[i+1]))
		}
	}
	if !isVector {
		return
	}
	if dim > 0 {
		c.Dimension = int(dim)
	}
	if metric != "" {
		c.Distance = domain.DistanceMetric(metric)
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return int64(f)
	case float64:
		return int64(n)
	}
	return 0
}

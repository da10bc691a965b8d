package domain

import "fmt"

// DistanceMetric is the similarity metric of a collection
type DistanceMetric string

const (
	DistanceCosine DistanceMetric = "cosine"
)

// Default collection settings.
const (
	DefaultCollectionName = "building_logs"
	DefaultDimension      = 768
)

// IndexCollection is a named, dimension and metric fixed namespace in the
// vector index.
type IndexCollection struct {
	Name      string
	Dimension int
	Distance  DistanceMetric
	Count     int64
}

// IndexPoint is one embedded unit as stored in a collection.
type IndexPoint struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
}

// ValidateIndexCollection validates collection settings
func ValidateIndexCollection(c *IndexCollection) error {
	if c == nil {
		return fmt.Errorf("collection cannot be nil")
	}
	if c.Name == "" {
		return fmt.Errorf("collection name is required")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("collection dimension must be positive, got %d", c.Dimension)
	}
	if c.Distance != DistanceCosine {
		return fmt.Errorf("unsupported distance metric: %s", c.Distance)
	}
	return nil
}

// Compatible reports whether an existing collection can serve the wanted one.
func (c IndexCollection) Compatible(want IndexCollection) error {
	if c.Dimension != want.Dimension {
		return Wrap(ErrDimensionMismatch, fmt.Errorf("collection %q has dimension %d, embedding model produces %d", c.Name, c.Dimension, want.Dimension))
	}
	if c.Distance != want.Distance {
		return Wrap(ErrDimensionMismatch, fmt.Errorf("collection %q uses %s distance, want %s", c.Name, c.Distance, want.Distance))
	}
	return nil
}

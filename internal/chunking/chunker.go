package chunking

import (
	"strconv"
	"strings"

	"github.com/cloo-solutions/shiftlog/internal/domain"
)

// Chunker turns content into text units, choosing a strategy per document.
type Chunker struct {
	separators []string
}

// NewChunker creates a chunker using DefaultSeparators.
func NewChunker() *Chunker {
	return &Chunker{separators: DefaultSeparators}
}

// Chunk splits content with the strategy its line statistics select. Every
// unit carries a copy of base plus its strategy name and index. Blank content
// yields no units.
func (c *Chunker) Chunk(content string, base domain.UnitMetadata) []domain.TextUnit {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	strategy := SelectStrategy(content)
	pieces := NewStrategySplitter(strategy, c.separators).Split(content)

	units := make([]domain.TextUnit, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		meta := base.Clone()
		meta.Extra[domain.MetaChunkStrategy] = strategy.Name
		meta.Extra[domain.MetaChunkIndex] = strconv.Itoa(len(units))
		units = append(units, domain.TextUnit{Content: p.Text, Metadata: meta})
	}
	return units
}

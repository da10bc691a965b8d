// Package chunking splits extracted content into retrieval-sized text units.
package chunking

import (
	"strings"
	"unicode/utf8"
)

// Strategy is a named chunk size and overlap pair.
type Strategy struct {
	Name    string
	Size    int
	Overlap int
}

var (
	// EntryStrategy suits content made of many short log entries.
	EntryStrategy = Strategy{Name: "entry", Size: 600, Overlap: 50}
	// DocumentStrategy suits prose and long paragraphs.
	DocumentStrategy = Strategy{Name: "document", Size: 1000, Overlap: 200}
)

// DefaultSeparators are tried in order: paragraph, line, field delimiter,
// word, then a hard character cut.
var DefaultSeparators = []string{"\n\n", "\n", " | ", " ", ""}

const (
	entryMinLines      = 5
	entryMaxMeanLength = 150
)

// ContentStats summarizes the line structure of a piece of content.
type ContentStats struct {
	Lines          int
	MeanLineLength float64
}

// Stats computes line statistics over content.
func Stats(content string) ContentStats {
	lines := strings.Split(content, "\n")
	total := 0
	for _, l := range lines {
		total += utf8.RuneCountInString(l)
	}
	return ContentStats{
		Lines:          len(lines),
		MeanLineLength: float64(total) / float64(len(lines)),
	}
}

// SelectStrategy picks the entry strategy when content has more than five
// lines averaging under 150 characters, and the document strategy otherwise.
func SelectStrategy(content string) Strategy {
	return StrategyFor(Stats(content))
}

// StrategyFor maps content statistics to a strategy.
func StrategyFor(s ContentStats) Strategy {
	if s.Lines > entryMinLines && s.MeanLineLength < entryMaxMeanLength {
		return EntryStrategy
	}
	return DocumentStrategy
}

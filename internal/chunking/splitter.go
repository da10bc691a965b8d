package chunking

import (
	"strings"
	"unicode/utf8"
)

// Piece is one split unit of text. Overlap counts the leading runes repeated
// from the end of the previous piece.
type Piece struct {
	Text    string
	Overlap int
}

// Fresh returns the piece text without the repeated overlap prefix.
func (p Piece) Fresh() string {
	if p.Overlap == 0 {
		return p.Text
	}
	return string([]rune(p.Text)[p.Overlap:])
}

// Splitter recursively splits text on an ordered list of separators until
// every unit fits the target size, then merges neighbours back up to that size.
type Splitter struct {
	size       int
	overlap    int
	separators []string
	boundaries [][]rune
}

// NewSplitter creates a splitter. Overlap is clamped below size.
func NewSplitter(size, overlap int, separators []string) *Splitter {
	if size <= 0 {
		size = DocumentStrategy.Size
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	s := &Splitter{size: size, overlap: overlap, separators: separators}
	for _, sep := range separators {
		if sep != "" {
			s.boundaries = append(s.boundaries, []rune(sep))
		}
	}
	return s
}

// NewStrategySplitter creates a splitter for a named strategy.
func NewStrategySplitter(st Strategy, separators []string) *Splitter {
	return NewSplitter(st.Size, st.Overlap, separators)
}

// Size returns the target unit size in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the effective overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split breaks text into pieces no longer than the target size. Separators are
// kept at the end of the text they terminate, so joining every piece's Fresh
// text reproduces the input.
func (s *Splitter) Split(text string) []Piece {
	if text == "" {
		return nil
	}
	return s.merge(s.atomize(text, s.separators))
}

func (s *Splitter) atomize(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= s.size {
		return []string{text}
	}

	sep, rest := pickSeparator(text, separators)
	if sep == "" {
		return hardCut(text, s.size)
	}

	var atoms []string
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= s.size {
			atoms = append(atoms, part)
			continue
		}
		atoms = append(atoms, s.atomize(part, rest)...)
	}
	return atoms
}

func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

func hardCut(text string, size int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func (s *Splitter) merge(atoms []string) []Piece {
	var (
		pieces  []Piece
		cur     strings.Builder
		curLen  int
		overlap int
	)

	for _, atom := range atoms {
		n := utf8.RuneCountInString(atom)
		if curLen > 0 && curLen+n > s.size {
			prev := cur.String()
			pieces = append(pieces, Piece{Text: prev, Overlap: overlap})

			tail := s.tail(prev, s.size-n)
			cur.Reset()
			cur.WriteString(tail)
			curLen = utf8.RuneCountInString(tail)
			overlap = curLen
		}
		cur.WriteString(atom)
		curLen += n
	}

	if curLen > 0 {
		pieces = append(pieces, Piece{Text: cur.String(), Overlap: overlap})
	}
	return pieces
}

// tail returns the longest suffix of prev, at most min(overlap, budget) runes,
// that begins on a separator boundary.
func (s *Splitter) tail(prev string, budget int) string {
	limit := s.overlap
	if budget < limit {
		limit = budget
	}
	if limit <= 0 {
		return ""
	}

	runes := []rune(prev)
	start := len(runes) - limit
	if start < 1 {
		start = 1
	}
	for p := start; p < len(runes); p++ {
		if s.endsWithBoundary(runes[:p]) && !s.insideBoundary(runes, p) {
			return string(runes[p:])
		}
	}
	return ""
}

func (s *Splitter) endsWithBoundary(runes []rune) bool {
	for _, b := range s.boundaries {
		if hasRuneSuffix(runes, b) {
			return true
		}
	}
	return false
}

// insideBoundary reports whether position p falls strictly inside an
// occurrence of a separator.
func (s *Splitter) insideBoundary(runes []rune, p int) bool {
	for _, b := range s.boundaries {
		for k := 1; k < len(b); k++ {
			start := p - k
			if start < 0 || start+len(b) > len(runes) {
				continue
			}
			if equalRunes(runes[start:start+len(b)], b) {
				return true
			}
		}
	}
	return false
}

func hasRuneSuffix(runes, suffix []rune) bool {
	if len(suffix) > len(runes) {
		return false
	}
	return equalRunes(runes[len(runes)-len(suffix):], suffix)
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Package chunker splits text into ordered, overlapping windows that prefer to
// end on paragraph, line, sentence, or word boundaries.
package chunker

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Span is the half-open rune range [Start, End) a chunk covers in the source text.
type Span struct {
	Start int
	End   int
}

// separators in preference order. A chunk ends right after the separator.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
}

// Splitter produces chunks of at most chunkSize characters (runes). Consecutive
// chunks share up to overlap characters, snapped forward to a word start.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter returns a splitter. Non-positive chunkSize falls back to
// DefaultChunkSize; an overlap that is negative or not smaller than chunkSize is
// reduced so every window still advances.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// ChunkSize returns the configured soft cap in characters.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap in characters.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunk texts for text. Empty or whitespace-only input yields
// nil, and no returned chunk is whitespace-only.
func (s *Splitter) Split(text string) []string {
	spans := s.SplitSpans(text)
	if spans == nil {
		return nil
	}
	runes := []rune(text)
	if len(spans) == 1 && spans[0] == (Span{Start: 0, End: len(runes)}) {
		return []string{text}
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = string(runes[sp.Start:sp.End])
	}
	return out
}

// SplitSpans returns the rune spans Split would cut. Each span holds at least
// one non-space rune and starts after its predecessor. A span starts no later
// than its predecessor's end unless only whitespace lies between them; such
// runs are left out of every span.
func (s *Splitter) SplitSpans(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	n := len(runes)
	if n <= s.chunkSize {
		return []Span{{Start: 0, End: n}}
	}
	var spans []Span
	start := 0
	for {
		ns := firstNonSpace(runes, start)
		if ns < 0 {
			return spans
		}
		if n-start <= s.chunkSize {
			spans = append(spans, Span{Start: start, End: n})
			return spans
		}
		end := s.breakPoint(runes, start)
		if ns >= end {
			// The window would hold only whitespace; resume at the next word.
			start = ns
			continue
		}
		spans = append(spans, Span{Start: start, End: end})
		start = s.nextStart(runes, start, end)
	}
}

// breakPoint picks where the window beginning at start ends: the last
// separator of the most preferred kind within the upper half of the window,
// then the last whitespace, and finally a hard cut at the size limit.
func (s *Splitter) breakPoint(runes []rune, start int) int {
	limit := start + s.chunkSize
	floor := start + s.chunkSize/2
	for _, sep := range separators {
		for end := limit; end > floor && end >= len(sep); end-- {
			if hasSuffixAt(runes, end, sep) {
				return end
			}
		}
	}
	for end := limit; end > floor; end-- {
		if unicode.IsSpace(runes[end-1]) {
			return end
		}
	}
	return limit
}

// nextStart backs up overlap characters from end, then moves forward to the
// next word start so the following chunk does not open mid-word.
func (s *Splitter) nextStart(runes []rune, start, end int) int {
	next := end - s.overlap
	if next <= start {
		return end
	}
	for i := next; i < end; i++ {
		if i == 0 || unicode.IsSpace(runes[i-1]) {
			if !unicode.IsSpace(runes[i]) {
				return i
			}
		}
	}
	return next
}

// firstNonSpace returns the index of the first non-space rune at or after from,
// or -1.
func firstNonSpace(runes []rune, from int) int {
	for i := from; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func hasSuffixAt(runes []rune, end int, sep []rune) bool {
	if end < len(sep) {
		return false
	}
	for i, r := range sep {
		if runes[end-len(sep)+i] != r {
			return false
		}
	}
	return true
}

package chunker

import (
	"strings"
	"testing"
)

// reassemble concatenates chunks, dropping the prefix each chunk shares with its predecessor.
func reassemble(chunks []string, spans []Span) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		shared := spans[i-1].End - spans[i].Start
		b.WriteString(string([]rune(c)[shared:]))
	}
	return b.String()
}

func TestSplitter_shortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	text := "  The quarterly report shows 12% growth.\n"
	chunks := s.Split(text)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("got %q", chunks)
	}
}

func TestSplitter_emptyAndWhitespace(t *testing.T) {
	s := NewSplitter(10, 2)
	for _, text := range []string{"", "   ", "\n\t \n"} {
		if got := s.Split(text); got != nil {
			t.Errorf("Split(%q) = %q, want nil", text, got)
		}
	}
}

func TestSplitter_coverageAndBounds(t *testing.T) {
	para := "Revenue grew across every region this quarter. Costs were flat. " +
		"The board approved the new hiring plan! Will margins hold? Analysts think so.\n"
	texts := map[string]string{
		"paragraphs": strings.Repeat(para+"\n", 12),
		"lines":      strings.Repeat("line of text number something\n", 80),
		"words":      strings.Repeat("word ", 700),
		"no spaces":  strings.Repeat("x", 2500),
		"unicode":    strings.Repeat("café naïve résumé 東京 ", 150),
	}
	for name, text := range texts {
		t.Run(name, func(t *testing.T) {
			s := NewSplitter(300, 60)
			spans := s.SplitSpans(text)
			chunks := s.Split(text)
			if len(chunks) < 2 {
				t.Fatalf("expected multiple chunks, got %d", len(chunks))
			}
			if len(chunks) != len(spans) {
				t.Fatalf("chunks=%d spans=%d", len(chunks), len(spans))
			}
			if spans[0].Start != 0 || spans[len(spans)-1].End != len([]rune(text)) {
				t.Errorf("spans do not cover text: first=%v last=%v", spans[0], spans[len(spans)-1])
			}
			for i, c := range chunks {
				n := len([]rune(c))
				if n == 0 {
					t.Errorf("chunk %d is empty", i)
				}
				if n > 300 {
					t.Errorf("chunk %d has %d chars, cap 300", i, n)
				}
				if i > 0 {
					prev, cur := spans[i-1], spans[i]
					if cur.Start <= prev.Start || cur.Start > prev.End {
						t.Errorf("span %d %v does not follow %v", i, cur, prev)
					}
					if prev.End-cur.Start > 60 {
						t.Errorf("span %d overlaps by %d, max 60", i, prev.End-cur.Start)
					}
				}
			}
			if got := reassemble(chunks, spans); got != text {
				t.Errorf("reassembled text differs from input")
			}
		})
	}
}

func TestSplitter_skipsWhitespaceRuns(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		first string
		last  string
		count int
	}{
		{"gap between words", "word" + strings.Repeat(" ", 3000) + "end", "word", "end", 2},
		{"leading whitespace", strings.Repeat(" ", 2500) + "tail words", "tail words", "tail words", 1},
		{"trailing whitespace", "start" + strings.Repeat("\n", 3000), "start", "start", 1},
		{"blank lines between paragraphs", "alpha." + strings.Repeat("\n", 1500) + "beta." + strings.Repeat(" ", 1200) + "gamma.", "alpha.", "gamma.", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSplitter(1000, 200)
			chunks := s.Split(tt.text)
			spans := s.SplitSpans(tt.text)
			if len(chunks) != tt.count || len(spans) != tt.count {
				t.Fatalf("got %d chunks and %d spans, want %d", len(chunks), len(spans), tt.count)
			}
			for i, c := range chunks {
				if strings.TrimSpace(c) == "" {
					t.Errorf("chunk %d is whitespace-only (%d runes)", i, len([]rune(c)))
				}
				if n := len([]rune(c)); n > 1000 {
					t.Errorf("chunk %d has %d runes", i, n)
				}
				if i > 0 && spans[i].Start <= spans[i-1].Start {
					t.Errorf("span %d %v does not follow %v", i, spans[i], spans[i-1])
				}
			}
			if got := strings.TrimSpace(chunks[0]); !strings.HasPrefix(got, tt.first) {
				t.Errorf("first chunk = %q, want prefix %q", got, tt.first)
			}
			if got := strings.TrimSpace(chunks[len(chunks)-1]); !strings.HasSuffix(got, tt.last) {
				t.Errorf("last chunk = %q, want suffix %q", got, tt.last)
			}
			if got, want := strings.Fields(strings.Join(chunks, " ")), strings.Fields(tt.text); strings.Join(got, " ") != strings.Join(want, " ") {
				t.Errorf("words %q, want %q", got, want)
			}
		})
	}
}

func TestSplitter_prefersParagraphBoundary(t *testing.T) {
	first := strings.Repeat("a", 70) + "\n\n"
	second := strings.Repeat("b ", 40)
	s := NewSplitter(100, 10)
	chunks := s.Split(first + second)
	if len(chunks) < 2 {
		t.Fatalf("expected 2+ chunks, got %d", len(chunks))
	}
	if chunks[0] != first {
		t.Errorf("first chunk should end at paragraph break, got %q", chunks[0])
	}
}

func TestSplitter_nextChunkStartsOnWord(t *testing.T) {
	s := NewSplitter(50, 15)
	text := strings.Repeat("alpha beta gamma delta ", 10)
	chunks := s.Split(text)
	for i, c := range chunks[1:] {
		if strings.HasPrefix(c, " ") || !strings.ContainsAny(c[:1], "abgd") {
			t.Errorf("chunk %d starts mid-word: %q", i+1, c)
		}
	}
}

func TestNewSplitter_clampsArguments(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize() != DefaultChunkSize || s.Overlap() != 0 {
		t.Errorf("got size=%d overlap=%d", s.ChunkSize(), s.Overlap())
	}
	s = NewSplitter(100, 100)
	if s.Overlap() != 20 {
		t.Errorf("overlap >= size should be reduced, got %d", s.Overlap())
	}
}

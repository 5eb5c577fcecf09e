package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/docrag/internal/chunker"
	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/vector"
)

func buildCorpus(b *testing.B, n int) (*vector.Corpus, *embedding.HashEmbedder) {
	b.Helper()
	emb := embedding.NewHashEmbedder(384)
	ctx := context.Background()
	chunks := make([]models.Chunk, n)
	texts := make([]string, n)
	for i := range chunks {
		texts[i] = fmt.Sprintf("document %d covers topic %d and subject %d", i, i%37, i%101)
		chunks[i] = models.Chunk{Text: texts[i], SourceName: fmt.Sprintf("doc-%d.txt", i), ChunkIndex: 0}
	}
	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		b.Fatal(err)
	}
	c := vector.NewCorpus(filepath.Join(b.TempDir(), "corpus.snap"))
	if _, err := c.Append(chunks, vecs); err != nil {
		b.Fatal(err)
	}
	return c, emb
}

func BenchmarkCorpusSearch(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		b.Run(fmt.Sprintf("chunks=%d", n), func(b *testing.B) {
			c, emb := buildCorpus(b, n)
			q, _ := emb.Embed(context.Background(), "topic 12 subject 40")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = c.Search(q, 5, vector.DefaultMinScore)
			}
		})
	}
}

func BenchmarkCorpusLoad(b *testing.B) {
	c, _ := buildCorpus(b, 5000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vector.NewCorpus(c.Path()).Load()
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkSplitter(b *testing.B) {
	text := strings.Repeat("A sentence about retrieval. Another one follows here.\n", 2000)
	s := chunker.NewSplitter(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Split(text)
	}
}

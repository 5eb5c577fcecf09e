package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

type countingEmbedder struct {
	*HashEmbedder
	batches [][]string
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, append([]string(nil), texts...))
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_ForwardsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(8)}
	emb := WithCache(inner, 10)
	ctx := context.Background()

	if _, err := emb.EmbedBatch(ctx, []string{"alpha", "beta"}); err != nil {
		t.Fatal(err)
	}
	out, err := emb.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d vectors", len(out))
	}
	if len(inner.batches) != 2 || len(inner.batches[1]) != 1 || inner.batches[1][0] != "gamma" {
		t.Errorf("batches forwarded = %v, want second batch [gamma]", inner.batches)
	}
	want, _ := inner.HashEmbedder.Embed(ctx, "alpha")
	for i := range want {
		if out[2][i] != want[i] {
			t.Fatalf("cached alpha differs at %d", i)
		}
	}
}

func TestWithCache_ZeroCapacity(t *testing.T) {
	inner := NewHashEmbedder(8)
	if WithCache(inner, 0) != Embedder(inner) {
		t.Error("zero capacity should return the embedder unchanged")
	}
}

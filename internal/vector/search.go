package vector

import (
	"container/heap"
	"math"

	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/pkg/utils"
)

// DefaultMinScore is the similarity a result must exceed to be returned.
const DefaultMinScore = 0.1

// scoreResolution is the grid cosine scores are rounded to, so a vector scores
// exactly 1 against itself and parallel vectors of any magnitude tie.
const scoreResolution = 1e12

func cosineScore(query, vec []float32, qNorm, vNorm float64) float64 {
	score := math.Round(utils.Dot(query, vec)/(qNorm*vNorm)*scoreResolution) / scoreResolution
	return math.Max(-1, math.Min(1, score))
}

type candidate struct {
	index int
	score float64
}

// worse reports whether a ranks below b: lower score, or equal score and later insertion.
func worse(a, b candidate) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.index > b.index
}

// topK is a min-heap whose root is the worst kept candidate.
type topK []candidate

func (h topK) Len() int           { return len(h) }
func (h topK) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h topK) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *topK) Push(x any)        { *h = append(*h, x.(candidate)) }

func (h *topK) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Search returns up to k chunks ranked by cosine similarity to query, best
// first, keeping only scores above minScore. Equal scores rank the earlier
// inserted chunk first. Stored vectors with zero norm are skipped, as is a zero
// query. Selection keeps a k-sized heap instead of sorting the whole corpus.
func (c *Corpus) Search(query []float32, k int, minScore float64) []models.QueryResult {
	if k <= 0 {
		return nil
	}
	qNorm := utils.Norm(query)
	if qNorm == 0 {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.vectors) == 0 || len(query) != c.dims {
		return nil
	}

	h := make(topK, 0, k)
	for i, vec := range c.vectors {
		if c.norms[i] == 0 {
			continue
		}
		score := cosineScore(query, vec, qNorm, c.norms[i])
		if score <= minScore {
			continue
		}
		cand := candidate{index: i, score: score}
		if len(h) < k {
			heap.Push(&h, cand)
		} else if worse(h[0], cand) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	results := make([]models.QueryResult, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		cand := heap.Pop(&h).(candidate)
		ch := cloneChunk(c.chunks[cand.index])
		results[i] = models.QueryResult{Chunk: &ch, Score: cand.score, Rank: i + 1}
	}
	return results
}

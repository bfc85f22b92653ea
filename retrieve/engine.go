package retrieve

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"ragchat/model"
	"ragchat/types"
)

// Result is one scored chunk. Results are ordered by descending score.
type Result struct {
	Chunk types.Chunk
	Score float64
}

// Fetcher is the read side of the chunk store. An empty namespace means the
// whole corpus.
type Fetcher interface {
	FetchAll(ctx context.Context, namespace string) ([]types.Chunk, error)
}

// Index ranks stored chunks against a query vector. The brute-force scan is
// the only implementation here; an ANN index can replace it without touching
// the engine.
type Index interface {
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
}

// BruteForce scores every stored vector against the query in memory after a
// single bulk fetch. O(n) per query; fine for the corpus sizes this serves,
// a scalability ceiling beyond that.
type BruteForce struct {
	fetcher   Fetcher
	namespace string
}

func NewBruteForce(fetcher Fetcher, namespace string) *BruteForce {
	return &BruteForce{fetcher: fetcher, namespace: namespace}
}

func (b *BruteForce) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	chunks, err := b.fetcher.FetchAll(ctx, b.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stored vectors: %w", err)
	}

	results := make([]Result, 0, len(chunks))
	for _, ch := range chunks {
		results = append(results, Result{
			Chunk: ch,
			Score: Cosine(ch.Embedding, query),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && k < len(results) {
		results = results[:k]
	}

	// nothing stored, or nothing even remotely related
	scored := false
	for _, r := range results {
		if r.Score != 0 {
			scored = true
			break
		}
	}
	if !scored {
		return nil, nil
	}
	return results, nil
}

// Cosine returns dot(a,b)/(|a|*|b|), or 0 when either vector has zero
// magnitude.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		na += float64(v) * float64(v)
	}
	for _, v := range b {
		nb += float64(v) * float64(v)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Engine embeds a query and ranks the stored corpus against it.
type Engine struct {
	embedder model.Embedder
	index    Index
}

func NewEngine(embedder model.Embedder, index Index) *Engine {
	return &Engine{embedder: embedder, index: index}
}

func (e *Engine) Retrieve(ctx context.Context, question string, k int) ([]Result, error) {
	query, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := e.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	log.Printf("[RETRIEVE] chunks=%d k=%d", len(results), k)
	return results, nil
}

// BuildContext concatenates the retrieved chunk texts as bullet lines
// annotated with the page number ("?" when unknown), then hard-truncates to
// maxChars. The cut is a plain substring cut and may land mid-sentence;
// that is the documented behavior, not a defect.
func BuildContext(results []Result, maxChars int) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		page := "?"
		if r.Chunk.Metadata.Page > 0 {
			page = fmt.Sprintf("%d", r.Chunk.Metadata.Page)
		}
		sb.WriteString(fmt.Sprintf("- (p.%s) %s", page, r.Chunk.Text))
	}

	context := sb.String()
	if maxChars > 0 {
		if runes := []rune(context); len(runes) > maxChars {
			context = string(runes[:maxChars])
		}
	}
	return context
}

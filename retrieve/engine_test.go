package retrieve

import (
	"context"
	"strings"
	"testing"

	"ragchat/types"

	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	require.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	require.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	require.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.Zero(t, Cosine([]float32{0, 0, 0}, []float32{1, 2, 3}))
	require.Zero(t, Cosine([]float32{1, 2, 3}, []float32{0, 0, 0}))
	require.Zero(t, Cosine(nil, nil))
}

func TestCosineBounds(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.9, 0.4},
		{-0.5, 0.2, 0.8},
		{3, -2, 1},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			score := Cosine(a, b)
			require.GreaterOrEqual(t, score, -1.0000001)
			require.LessOrEqual(t, score, 1.0000001)
		}
	}
}

type stubFetcher struct{ chunks []types.Chunk }

func (s *stubFetcher) FetchAll(ctx context.Context, namespace string) ([]types.Chunk, error) {
	return s.chunks, nil
}

func chunk(id string, page int, text string, embedding ...float32) types.Chunk {
	return types.Chunk{
		ID:        id,
		Text:      text,
		Embedding: embedding,
		Metadata:  types.Metadata{Page: page},
	}
}

func TestBruteForceRanking(t *testing.T) {
	fetcher := &stubFetcher{chunks: []types.Chunk{
		chunk("far", 1, "unrelated", 0, 1, 0),
		chunk("near", 2, "almost the query", 0.95, 0.05, 0),
		chunk("exact", 3, "the query itself", 1, 0, 0),
	}}
	index := NewBruteForce(fetcher, "")

	results, err := index.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "exact", results[0].Chunk.ID)
	require.Equal(t, "near", results[1].Chunk.ID)
	require.Equal(t, "far", results[2].Chunk.ID)

	require.Greater(t, results[0].Score, 0.8)
	require.Greater(t, results[1].Score, 0.8)
	require.Less(t, results[2].Score, 0.3)
}

func TestBruteForceTopK(t *testing.T) {
	fetcher := &stubFetcher{chunks: []types.Chunk{
		chunk("a", 1, "a", 1, 0),
		chunk("b", 2, "b", 0.9, 0.1),
		chunk("c", 3, "c", 0.8, 0.2),
	}}
	index := NewBruteForce(fetcher, "")

	results, err := index.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestBruteForceEmptyCorpus(t *testing.T) {
	index := NewBruteForce(&stubFetcher{}, "")
	results, err := index.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestBruteForceAllZeroScores(t *testing.T) {
	fetcher := &stubFetcher{chunks: []types.Chunk{
		chunk("z1", 1, "no embedding"),
		chunk("z2", 2, "zero vector", 0, 0),
	}}
	index := NewBruteForce(fetcher, "")
	results, err := index.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestBruteForceStableOrderOnTies(t *testing.T) {
	fetcher := &stubFetcher{chunks: []types.Chunk{
		chunk("first", 1, "same direction", 2, 0),
		chunk("second", 2, "same direction too", 4, 0),
	}}
	index := NewBruteForce(fetcher, "")
	results, err := index.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Equal(t, "first", results[0].Chunk.ID)
	require.Equal(t, "second", results[1].Chunk.ID)
}

func TestBuildContext(t *testing.T) {
	results := []Result{
		{Chunk: chunk("a", 3, "first passage", 1)},
		{Chunk: chunk("b", 0, "second passage", 1)},
	}
	context := BuildContext(results, 1500)
	require.Equal(t, "- (p.3) first passage\n- (p.?) second passage", context)
}

func TestBuildContextTruncation(t *testing.T) {
	long := strings.Repeat("x", 2000)
	results := []Result{{Chunk: chunk("a", 1, long, 1)}}
	context := BuildContext(results, 100)
	require.Len(t, []rune(context), 100)
	require.True(t, strings.HasPrefix(context, "- (p.1) "))
}

func TestBuildContextEmpty(t *testing.T) {
	require.Empty(t, BuildContext(nil, 1500))
}

type stubEmbedder struct{ vec []float32 }

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, nil
}

func TestEngineRetrieve(t *testing.T) {
	fetcher := &stubFetcher{chunks: []types.Chunk{
		chunk("hit", 1, "relevant text", 1, 0),
		chunk("miss", 2, "other text", 0, 1),
	}}
	engine := NewEngine(&stubEmbedder{vec: []float32{1, 0}}, NewBruteForce(fetcher, ""))

	results, err := engine.Retrieve(context.Background(), "what is relevant?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "hit", results[0].Chunk.ID)
}

package model

import "context"

// Embedder produces a fixed-dimension vector for a piece of text. Both chunk
// and query embeddings go through this interface so tests can substitute a
// deterministic implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

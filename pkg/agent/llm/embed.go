package llm

import "context"

// Embedder produces embedding vectors for text. Implemented by providers
// that expose an embeddings endpoint; used for knowledge base queries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

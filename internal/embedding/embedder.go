// Package embedding provides the embedder capability interface, an LRU cache,
// adaptive batching, and concrete backends (ONNX, deterministic mock).
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must be
// deterministic: identical input text yields an identical vector, which the
// cache relies on. Vectors from one implementation are comparable to each
// other by cosine similarity.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

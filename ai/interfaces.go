package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains exactly one embedding per input, in input order,
	// and every embedding has the same dimension.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingProvider owns a loaded embedding model for the lifetime of the process.
type EmbeddingProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ModelName identifies the model. Cached embeddings computed by a different
	// model are never reused.
	ModelName() string

	// Close releases resources held by the provider.
	// After Close is called, the provider and its embedder should not be used.
	Close() error
}

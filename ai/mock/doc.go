// Package mock provides test double implementations of the ai interfaces.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	vec, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := embedder.BatchCallCount()
//
// # Default Behavior
//
// MockEmbedder returns deterministic unit vectors seeded from an FNV hash of
// the text, so identical text always embeds identically.
package mock

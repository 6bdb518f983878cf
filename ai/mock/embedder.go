package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// DefaultDimension is the width of vectors produced by the default mock behavior.
const DefaultDimension = 384

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu            sync.Mutex
	textCalls     int
	batchCalls    int
	embeddedTexts []string
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.textCalls++
	m.embeddedTexts = append(m.embeddedTexts, text)
	fn := m.EmbedTextFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	return DeterministicVector(text, DefaultDimension), nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.embeddedTexts = append(m.embeddedTexts, texts...)
	fn := m.EmbedTextsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = DeterministicVector(text, DefaultDimension)
	}
	return embeddings, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textCalls + m.batchCalls
}

// TextCallCount returns the number of EmbedText calls.
func (m *MockEmbedder) TextCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textCalls
}

// BatchCallCount returns the number of EmbedTexts calls.
func (m *MockEmbedder) BatchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// EmbeddedTexts returns every text passed to either method, in call order.
func (m *MockEmbedder) EmbeddedTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.embeddedTexts...)
}

// Reset clears call counts and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textCalls = 0
	m.batchCalls = 0
	m.embeddedTexts = nil
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// DeterministicVector creates a unit-length embedding vector from text.
// It uses an FNV hash so the same text always produces the same vector.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 - 0.5
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}

// NewKeywordEmbedder returns a mock whose vectors count occurrences of each
// vocabulary word, so texts sharing vocabulary score as similar.
func NewKeywordEmbedder(vocab ...string) *MockEmbedder {
	m := NewMockEmbedder()
	m.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		return KeywordVector(text, vocab), nil
	}
	m.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = KeywordVector(text, vocab)
		}
		return out, nil
	}
	return m
}

// KeywordVector counts case-insensitive whole-word occurrences of each vocab entry in text.
func KeywordVector(text string, vocab []string) []float32 {
	index := make(map[string]int, len(vocab))
	for i, w := range vocab {
		index[strings.ToLower(w)] = i
	}
	vector := make([]float32, len(vocab))
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if i, ok := index[w]; ok {
			vector[i]++
		}
	}
	return vector
}

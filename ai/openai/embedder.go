package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/rostermatch/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder  embeddings.Embedder
	pool      *ants.Pool
	batchSize int
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithProgress writes batch progress to w while embedding multi-batch inputs.
func WithProgress(w io.Writer) Option {
	return func(e *Embedder) {
		e.progress = w
	}
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config, opts ...Option) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services don't require authentication
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return newEmbedderWith(embedder, config, opts...)
}

// newEmbedderWith wraps an existing langchaingo embedder. Split out so tests
// can exercise batching without a network client.
func newEmbedderWith(embedder embeddings.Embedder, config *ai.Config, opts ...Option) (*Embedder, error) {
	pool, err := ants.NewPool(config.Concurrency)
	if err != nil {
		return nil, err
	}

	e := &Embedder{
		embedder:  embedder,
		pool:      pool,
		batchSize: config.BatchSize,
		logger:    slog.Default().With("component", "openai-embedder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
// The embedder owns a worker pool; prefer NewProvider, whose Close releases it.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config, opts ...Option) (ai.Embedder, error) {
	return newEmbedder(config, opts...)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedder returned an empty vector")
	}
	return vector, nil
}

type span struct {
	start, end int
}

func batches(n, size int) []span {
	spans := make([]span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		spans = append(spans, span{start: start, end: min(start+size, n)})
	}
	return spans
}

// EmbedTexts generates vector embeddings for multiple text strings. Inputs
// larger than the batch size are embedded concurrently in batches; the first
// failing batch cancels the rest.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	spans := batches(len(texts), e.batchSize)
	if len(spans) == 1 {
		return e.embedBatch(ctx, texts)
	}

	progress := newProgressReporter(e.progress, len(texts))
	progress.start()

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		firstErr error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for _, s := range spans {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			if batchCtx.Err() != nil {
				return
			}
			vectors, err := e.embedBatch(batchCtx, texts[s.start:s.end])
			if err != nil {
				fail(fmt.Errorf("batch %d-%d: %w", s.start, s.end, err))
				return
			}
			copy(results[s.start:s.end], vectors)
			progress.add(len(vectors))
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", firstErr)
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress.finish()
	return results, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vectors))
	}
	return vectors, nil
}

// Close releases the worker pool.
func (e *Embedder) Close() {
	e.pool.Release()
}

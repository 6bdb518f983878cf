// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package embedcache returns the embedding matrix for a roster, reusing the
// persisted matrix when the roster fingerprint, embedding model and row count
// all match, and re-embedding the whole roster otherwise.
package embedcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/rostermatch/ai"
	"github.com/poiesic/rostermatch/core"
	"github.com/poiesic/rostermatch/storage"
)

// Cache mediates between a dataset and its persisted embedding matrix.
type Cache struct {
	store  storage.CacheStore
	model  string
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache outcomes since the Cache was created.
type Stats struct {
	Hits   int64
	Misses int64
}

// Option configures a Cache.
type Option func(*Cache) error

// WithModel records the embedding model name alongside the matrix.
// A stored matrix produced by a different model is never reused.
func WithModel(model string) Option {
	return func(c *Cache) error {
		c.model = model
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "embedcache")
		return nil
	}
}

// New creates a cache over store.
func New(store storage.CacheStore, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	c := &Cache{
		store:  store,
		logger: slog.Default().With("component", "embedcache"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Stats returns the hit and miss counts.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

// GetEmbeddings returns one embedding row per dataset record, in record order.
// On a hit the embedder is not called. On a miss EmbedTexts is called exactly
// once with every DocText, and the result is persisted before it is returned.
func (c *Cache) GetEmbeddings(ctx context.Context, dataset *core.Dataset, embedder ai.Embedder) (core.EmbeddingMatrix, error) {
	if dataset == nil {
		return nil, ErrDatasetRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	entry, err := c.store.Load(ctx)
	switch {
	case err == nil:
		if reason := c.mismatch(entry, dataset); reason != "" {
			c.logger.Info("cache stale", "reason", reason)
		} else {
			c.hits.Add(1)
			c.logger.Info("cache hit", "rows", len(entry.Matrix), "dimension", entry.Dimension, "fingerprint", entry.Fingerprint)
			return entry.Matrix, nil
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	case errors.Is(err, storage.ErrNotFound):
		c.logger.Info("cache empty")
	default:
		c.logger.Warn("discarding unreadable cache", "err", fmt.Errorf("%w: %w", core.ErrCacheCorruption, err))
	}

	c.misses.Add(1)
	return c.rebuild(ctx, dataset, embedder)
}

// mismatch explains why entry cannot serve dataset, or returns "" when it can.
func (c *Cache) mismatch(entry *core.CacheEntry, dataset *core.Dataset) string {
	switch {
	case entry.Fingerprint != dataset.Fingerprint:
		return "fingerprint changed"
	case entry.Model != c.model:
		return "embedding model changed"
	case len(entry.Matrix) != len(dataset.Records):
		return "row count changed"
	default:
		return ""
	}
}

func (c *Cache) rebuild(ctx context.Context, dataset *core.Dataset, embedder ai.Embedder) (core.EmbeddingMatrix, error) {
	texts := dataset.DocTexts()
	c.logger.Info("embedding roster", "records", len(texts), "model", c.model)

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		c.logger.Error("error embedding roster", "err", err)
		return nil, core.NewProviderError(core.StageInitialization, err)
	}

	matrix := core.EmbeddingMatrix(vectors)
	if err := core.ValidateMatrix(matrix, len(dataset.Records)); err != nil {
		c.logger.Error("embedder returned an unusable matrix", "err", err)
		return nil, core.NewProviderError(core.StageInitialization, err)
	}

	entry := &core.CacheEntry{
		Fingerprint: dataset.Fingerprint,
		Model:       c.model,
		Dimension:   matrix.Dimension(),
		Matrix:      matrix,
	}
	if err := c.store.Save(ctx, entry); err != nil {
		// The matrix is still valid for this process; the next start misses again.
		c.logger.Warn("error persisting embeddings", "err", err)
	}

	return matrix, nil
}

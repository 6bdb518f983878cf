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

// Package rostermatch matches free-text queries against a CSV roster of people
// using sentence embeddings and cosine similarity.
//
// A Matcher owns all process state: the normalized roster, its embedding
// matrix and the embedding provider. The roster is embedded once per change
// and the matrix is persisted through a storage.CacheStore so later starts
// skip the provider entirely.
//
//	provider, _ := openai.NewProvider(ai.DefaultConfig())
//	store, _ := file.NewCacheStore(".cache")
//	m, _ := rostermatch.NewMatcher("roster.csv", provider, store)
//	defer m.Close()
//	matches, err := m.Match(ctx, "machine learning policy", 5)
package rostermatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/rostermatch/ai"
	"github.com/poiesic/rostermatch/core"
	"github.com/poiesic/rostermatch/embedcache"
	"github.com/poiesic/rostermatch/rank"
	"github.com/poiesic/rostermatch/roster"
	"github.com/poiesic/rostermatch/storage"
	"golang.org/x/sync/singleflight"
)

const initKey = "init"

// Matcher is the matching facade. It is safe for concurrent use.
type Matcher struct {
	rosterPath string
	provider   ai.EmbeddingProvider
	store      storage.CacheStore
	cache      *embedcache.Cache
	ranker     rank.Ranker
	rosterOpts []roster.Option
	monitor    Monitor
	logger     *slog.Logger

	group  singleflight.Group
	initMu sync.Mutex
	state  atomic.Pointer[state]
	closed atomic.Bool
}

// state is the read-only result of a successful initialization.
type state struct {
	dataset *core.Dataset
	matrix  core.EmbeddingMatrix
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// WithRanker replaces the default exhaustive cosine ranker.
func WithRanker(r rank.Ranker) Option {
	return func(m *Matcher) error {
		if r == nil {
			return errors.New("ranker must not be nil")
		}
		m.ranker = r
		return nil
	}
}

// WithDedupPolicy selects which row survives when emails repeat. Default: roster.KeepFirst.
func WithDedupPolicy(policy roster.DedupPolicy) Option {
	return func(m *Matcher) error {
		m.rosterOpts = append(m.rosterOpts, roster.WithDedupPolicy(policy))
		return nil
	}
}

// WithDistinctBlankEmails keeps every roster row with a blank email instead of
// collapsing them into one.
func WithDistinctBlankEmails() Option {
	return func(m *Matcher) error {
		m.rosterOpts = append(m.rosterOpts, roster.WithDistinctBlankEmails())
		return nil
	}
}

// WithFingerprinter selects how roster changes are detected. Default: roster.ModTimeFingerprinter.
func WithFingerprinter(fp roster.Fingerprinter) Option {
	return func(m *Matcher) error {
		if fp == nil {
			return errors.New("fingerprinter must not be nil")
		}
		m.rosterOpts = append(m.rosterOpts, roster.WithFingerprinter(fp))
		return nil
	}
}

// WithMonitor installs hooks that observe initialization and every Match call.
func WithMonitor(monitor Monitor) Option {
	return func(m *Matcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		m.monitor = monitor
		return nil
	}
}

// NewMatcher creates a matcher for the roster at rosterPath.
// The matcher takes ownership of provider and store and closes them in Close.
// No I/O happens until Init or the first Match.
func NewMatcher(rosterPath string, provider ai.EmbeddingProvider, store storage.CacheStore, opts ...Option) (*Matcher, error) {
	if strings.TrimSpace(rosterPath) == "" {
		return nil, ErrRosterPathRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	m := &Matcher{
		rosterPath: rosterPath,
		provider:   provider,
		store:      store,
		ranker:     rank.NewExhaustive(),
		monitor:    &noopMonitor{},
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	base := m.logger
	m.logger = base.With("component", "matcher")
	m.rosterOpts = append(m.rosterOpts, roster.WithLogger(base))

	cache, err := embedcache.New(store,
		embedcache.WithModel(provider.ModelName()),
		embedcache.WithLogger(base))
	if err != nil {
		return nil, err
	}
	m.cache = cache

	return m, nil
}

// Init loads the roster and its embeddings. Concurrent callers share a single
// run; once it succeeds, later calls return immediately. A failed run leaves
// the matcher uninitialized so Init may be called again.
func (m *Matcher) Init(ctx context.Context) error {
	_, err := m.ready(ctx)
	return err
}

// Ready reports whether initialization has completed.
func (m *Matcher) Ready() bool {
	return m.state.Load() != nil
}

// Dataset returns the loaded roster, or nil before initialization.
func (m *Matcher) Dataset() *core.Dataset {
	if st := m.state.Load(); st != nil {
		return st.dataset
	}
	return nil
}

// CacheStats reports embedding cache hits and misses.
func (m *Matcher) CacheStats() embedcache.Stats {
	return m.cache.Stats()
}

// Match returns up to topN roster members most similar to query, best first.
// A blank query fails with core.ErrInvalidQuery before any other work.
func (m *Matcher) Match(ctx context.Context, query string, topN int) ([]core.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", core.ErrInvalidQuery)
	}

	m.monitor.Start(query)

	st, err := m.ready(ctx)
	if err != nil {
		return nil, err
	}

	vector, err := m.provider.Embedder().EmbedText(ctx, query)
	if err != nil {
		m.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, core.NewProviderError(core.StageQuery, err)
	}
	m.monitor.AfterQueryEmbedding(vector)

	scored, err := m.ranker.Rank(vector, st.matrix, st.dataset.Records, topN)
	if err != nil {
		m.logger.Error("error ranking records", "err", err)
		return nil, err
	}
	m.monitor.AfterRanking(scored)

	matches := make([]core.Match, len(scored))
	for i, sr := range scored {
		matches[i] = core.NewMatch(sr)
	}
	m.monitor.Finish(matches)

	return matches, nil
}

// Close releases the provider and the cache store.
func (m *Matcher) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	var errs []error
	if err := m.provider.Close(); err != nil {
		m.logger.Error("error closing embedding provider", "err", err)
		errs = append(errs, err)
	}
	if err := m.store.Close(); err != nil {
		m.logger.Error("error closing cache store", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ready returns the initialized state, running initialization if needed.
func (m *Matcher) ready(ctx context.Context) (*state, error) {
	if m.closed.Load() {
		return nil, ErrMatcherClosed
	}
	if st := m.state.Load(); st != nil {
		return st, nil
	}

	v, err, shared := m.group.Do(initKey, func() (any, error) {
		return m.initialize(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("joined in-flight initialization")
	}
	return v.(*state), nil
}

// initialize runs the load-then-embed sequence under initMu.
func (m *Matcher) initialize(ctx context.Context) (*state, error) {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if st := m.state.Load(); st != nil {
		return st, nil
	}

	m.logger.Info("initializing", "roster", m.rosterPath, "model", m.provider.ModelName())

	dataset, err := roster.Load(ctx, m.rosterPath, m.rosterOpts...)
	if err != nil {
		m.logger.Error("error loading roster", "roster", m.rosterPath, "err", err)
		return nil, err
	}

	matrix, err := m.cache.GetEmbeddings(ctx, dataset, m.provider.Embedder())
	if err != nil {
		return nil, err
	}

	st := &state{dataset: dataset, matrix: matrix}
	m.state.Store(st)
	m.monitor.AfterInit(dataset, matrix)

	m.logger.Info("initialized", "records", len(dataset.Records), "dimension", matrix.Dimension())
	return st, nil
}

package rostermatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poiesic/rostermatch/ai/mock"
	"github.com/poiesic/rostermatch/core"
	"github.com/poiesic/rostermatch/roster"
	"github.com/poiesic/rostermatch/storage"
	"github.com/poiesic/rostermatch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fivePeople = `first_name,last_name,email,company,title,background,keywords,location
Ada,Lovelace,ada@example.com,Acme AI,ML Engineer,machine learning research,"python,ml",London
Ben,Ruiz,ben@example.com,Civic Lab,Policy Analyst,technology policy and machine learning governance,"policy,ai",Madrid
Cara,Diaz,cara@example.com,Studio,Designer,visual design,"figma,ux",Lima
Dan,Wu,dan@example.com,Bank,Accountant,finance audits,excel,Taipei
Eve,Ng,eve@example.com,Gov,Policy Advisor,public policy,"law,policy",Singapore
`

// messyPeople has one row with no title, background or keywords and two rows
// sharing an email, leaving Ada, Ben and Dan after normalization.
const messyPeople = `first_name,last_name,email,company,title,background,keywords,location
Ada,Lovelace,ada@example.com,Acme AI,ML Engineer,machine learning research,"python,ml",London
Ben,Ruiz,ben@example.com,Civic Lab,Policy Analyst,technology policy and machine learning governance,"policy,ai",Madrid
Cara,Diaz,cara@example.com,Studio,,,,Lima
Dan,Wu,dan@example.com,Bank,Accountant,finance audits,excel,Taipei
Ada,Byron,ada@example.com,Studio,Designer,visual design,"figma,ux",London
`

var vocab = []string{"machine", "learning", "policy", "design", "finance"}

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newMemoryStore(t *testing.T) storage.CacheStore {
	t.Helper()
	store, err := badger.NewMemoryCacheStore()
	require.NoError(t, err)
	return store
}

func newTestMatcher(t *testing.T, content string, opts ...Option) (*Matcher, *mock.MockEmbedder) {
	t.Helper()
	embedder := mock.NewKeywordEmbedder(vocab...)
	provider := mock.NewMockProviderWithEmbedder(embedder, "keyword")
	m, err := NewMatcher(writeRoster(t, content), provider, newMemoryStore(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m, embedder
}

// recordingMonitor captures hook invocations.
type recordingMonitor struct {
	mu      sync.Mutex
	queries []string
	inits   int
	vectors int
	ranked  int
	matches [][]core.Match
}

func (r *recordingMonitor) Start(q string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, q)
}

func (r *recordingMonitor) AfterInit(_ *core.Dataset, _ core.EmbeddingMatrix) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits++
}

func (r *recordingMonitor) AfterQueryEmbedding(_ []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vectors++
}

func (r *recordingMonitor) AfterRanking(_ []core.ScoredRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranked++
}

func (r *recordingMonitor) Finish(m []core.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, m)
}

func TestNewMatcher_Validation(t *testing.T) {
	provider := mock.NewMockProvider()
	store := newMemoryStore(t)
	defer store.Close()

	_, err := NewMatcher("", provider, store)
	assert.ErrorIs(t, err, ErrRosterPathRequired)

	_, err = NewMatcher("roster.csv", nil, store)
	assert.ErrorIs(t, err, ErrProviderRequired)

	_, err = NewMatcher("roster.csv", provider, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewMatcher("roster.csv", provider, store, WithRanker(nil))
	assert.Error(t, err)
}

func TestMatcher_EndToEnd(t *testing.T) {
	m, _ := newTestMatcher(t, fivePeople)

	matches, err := m.Match(context.Background(), "machine learning policy", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "Ben", matches[0].FirstName)
	assert.Equal(t, "Ruiz", matches[0].LastName)
	assert.Equal(t, "Civic Lab", matches[0].Company)
	assert.Equal(t, "Policy Analyst", matches[0].Title)
	assert.Equal(t, "ben@example.com", matches[0].Email)
	assert.Equal(t, "Ada", matches[1].FirstName)
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.InDelta(t, 0.870, matches[0].Score, 1e-3)
	assert.InDelta(t, 0.816, matches[1].Score, 1e-3)
}

func TestMatcher_EndToEndFiltersAndDedups(t *testing.T) {
	m, _ := newTestMatcher(t, messyPeople)

	matches, err := m.Match(context.Background(), "machine learning policy", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	survivors := map[string]bool{"ada@example.com": true, "ben@example.com": true, "dan@example.com": true}
	for _, match := range matches {
		assert.True(t, survivors[match.Email], "unexpected match %s", match.Email)
		assert.NotEqual(t, "Byron", match.LastName)
		assert.GreaterOrEqual(t, match.Score, -1.0)
		assert.LessOrEqual(t, match.Score, 1.0)
	}
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "Ben", matches[0].FirstName)
	assert.Equal(t, "Lovelace", matches[1].LastName)

	dataset := m.Dataset()
	require.NotNil(t, dataset)
	assert.Len(t, dataset.Records, 3)
}

func TestMatcher_TopNClamped(t *testing.T) {
	m, _ := newTestMatcher(t, fivePeople)

	matches, err := m.Match(context.Background(), "policy", 50)
	require.NoError(t, err)
	assert.Len(t, matches, 5)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}

	matches, err = m.Match(context.Background(), "policy", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatcher_EmptyQuery(t *testing.T) {
	m, embedder := newTestMatcher(t, fivePeople)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := m.Match(context.Background(), q, 5)
		assert.ErrorIs(t, err, core.ErrInvalidQuery)
	}
	assert.Equal(t, 0, embedder.CallCount())
	assert.False(t, m.Ready(), "an invalid query must not trigger initialization")
}

func TestMatcher_Idempotent(t *testing.T) {
	ctx := context.Background()
	m, embedder := newTestMatcher(t, fivePeople)

	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.Init(ctx))

	first, err := m.Match(ctx, "design", 3)
	require.NoError(t, err)
	second, err := m.Match(ctx, "design", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.BatchCallCount())
	assert.Equal(t, 2, embedder.TextCallCount())
}

func TestMatcher_ConcurrentInitRunsOnce(t *testing.T) {
	monitor := &recordingMonitor{}
	m, embedder := newTestMatcher(t, fivePeople, WithMonitor(monitor))

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Match(context.Background(), "machine learning", 3)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, embedder.BatchCallCount())
	assert.Equal(t, 20, embedder.TextCallCount())
	assert.Equal(t, 1, monitor.inits)
	assert.Len(t, monitor.queries, 20)
	assert.Len(t, monitor.matches, 20)
}

func TestMatcher_FailedInitCanRetry(t *testing.T) {
	ctx := context.Background()
	m, embedder := newTestMatcher(t, fivePeople)

	working := embedder.EmbedTextsFunc
	boom := errors.New("provider down")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	err := m.Init(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderFailure)
	assert.False(t, m.Ready())
	assert.Nil(t, m.Dataset())

	embedder.EmbedTextsFunc = working
	require.NoError(t, m.Init(ctx))
	assert.True(t, m.Ready())
	assert.Len(t, m.Dataset().Records, 5)
}

func TestMatcher_QueryProviderFailure(t *testing.T) {
	ctx := context.Background()
	m, embedder := newTestMatcher(t, fivePeople)
	require.NoError(t, m.Init(ctx))

	boom := errors.New("timeout")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}

	_, err := m.Match(ctx, "policy", 1)
	var perr *core.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, core.StageQuery, perr.Stage)
	assert.ErrorIs(t, err, boom)
}

func TestMatcher_StructuralInput(t *testing.T) {
	m, embedder := newTestMatcher(t, "first_name,email\nAda,ada@example.com\n")

	_, err := m.Match(context.Background(), "policy", 1)
	assert.ErrorIs(t, err, core.ErrStructuralInput)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestMatcher_DedupPolicy(t *testing.T) {
	content := fivePeople + "Ben,Later,ben@example.com,Elsewhere,Finance Lead,finance,money,Paris\n"

	t.Run("first wins", func(t *testing.T) {
		m, _ := newTestMatcher(t, content)
		require.NoError(t, m.Init(context.Background()))
		records := m.Dataset().Records
		require.Len(t, records, 5)
		assert.Equal(t, "Ruiz", records[1].LastName)
	})

	t.Run("last wins", func(t *testing.T) {
		m, _ := newTestMatcher(t, content, WithDedupPolicy(roster.KeepLast))
		require.NoError(t, m.Init(context.Background()))
		records := m.Dataset().Records
		require.Len(t, records, 5)
		assert.Equal(t, "Later", records[4].LastName)
	})
}

func TestMatcher_BlankEmails(t *testing.T) {
	content := fivePeople +
		"Fay,One,,Lab,Policy Intern,policy,policy,Oslo\n" +
		"Gus,Two, ,Lab,Design Intern,design,design,Oslo\n"

	t.Run("collapse by default", func(t *testing.T) {
		m, _ := newTestMatcher(t, content)
		require.NoError(t, m.Init(context.Background()))
		records := m.Dataset().Records
		require.Len(t, records, 6)
		assert.Equal(t, "One", records[5].LastName)
	})

	t.Run("distinct when asked", func(t *testing.T) {
		m, _ := newTestMatcher(t, content, WithDistinctBlankEmails())
		require.NoError(t, m.Init(context.Background()))
		assert.Len(t, m.Dataset().Records, 7)
	})
}

func TestMatcher_CacheReuseAcrossMatchers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeRoster(t, fivePeople)

	open := func() (*Matcher, *mock.MockEmbedder) {
		embedder := mock.NewKeywordEmbedder(vocab...)
		store, err := badger.NewCacheStore(dir)
		require.NoError(t, err)
		m, err := NewMatcher(path, mock.NewMockProviderWithEmbedder(embedder, "keyword"), store,
			WithFingerprinter(roster.ContentFingerprinter{}))
		require.NoError(t, err)
		return m, embedder
	}

	first, firstEmbedder := open()
	require.NoError(t, first.Init(ctx))
	assert.Equal(t, 1, firstEmbedder.BatchCallCount())
	require.NoError(t, first.Close())

	second, secondEmbedder := open()
	defer second.Close()
	require.NoError(t, second.Init(ctx))
	assert.Equal(t, 0, secondEmbedder.BatchCallCount())
	assert.Equal(t, int64(1), second.CacheStats().Hits)
}

func TestMatcher_Close(t *testing.T) {
	provider := mock.NewMockProviderWithEmbedder(mock.NewKeywordEmbedder(vocab...), "keyword")
	m, err := NewMatcher(writeRoster(t, fivePeople), provider, newMemoryStore(t))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.True(t, provider.Closed())

	_, err = m.Match(context.Background(), "policy", 1)
	assert.ErrorIs(t, err, ErrMatcherClosed)
}

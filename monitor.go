package rostermatch

import "github.com/poiesic/rostermatch/core"

// Monitor provides hooks to observe initialization and matching.
// Implementations must be safe for concurrent use when the Matcher serves
// concurrent requests.
type Monitor interface {
	Start(query string)
	AfterInit(dataset *core.Dataset, matrix core.EmbeddingMatrix)
	AfterQueryEmbedding(vector []float32)
	AfterRanking(results []core.ScoredRecord)
	Finish(matches []core.Match)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                    {}
func (n *noopMonitor) AfterInit(_ *core.Dataset, _ core.EmbeddingMatrix) {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)                   {}
func (n *noopMonitor) AfterRanking(_ []core.ScoredRecord)                {}
func (n *noopMonitor) Finish(_ []core.Match)                             {}

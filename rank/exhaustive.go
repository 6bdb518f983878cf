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

package rank

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/poiesic/rostermatch/core"
)

// Ranker orders records by similarity to a query embedding.
type Ranker interface {
	// Rank returns at most topN records, best first.
	// matrix[i] is the embedding of records[i].
	Rank(query []float32, matrix core.EmbeddingMatrix, records []core.Record, topN int) ([]core.ScoredRecord, error)
}

// Option configures an Exhaustive ranker.
type Option func(*Exhaustive)

// WithMinScore drops results scoring below threshold.
func WithMinScore(threshold float64) Option {
	return func(e *Exhaustive) {
		e.minScore = threshold
		e.hasMinScore = true
	}
}

// Exhaustive scores every record. It is stateless and safe for concurrent use.
type Exhaustive struct {
	minScore    float64
	hasMinScore bool
}

var _ Ranker = (*Exhaustive)(nil)

// NewExhaustive creates an exhaustive cosine ranker.
func NewExhaustive(opts ...Option) *Exhaustive {
	e := &Exhaustive{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank implements Ranker.
func (e *Exhaustive) Rank(query []float32, matrix core.EmbeddingMatrix, records []core.Record, topN int) ([]core.ScoredRecord, error) {
	if len(matrix) != len(records) {
		return nil, fmt.Errorf("%w: %d rows for %d records", core.ErrMatrixMismatch, len(matrix), len(records))
	}
	if err := core.ValidateVector(query); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	topN = max(0, min(topN, len(records)))
	if topN == 0 {
		return []core.ScoredRecord{}, nil
	}

	scored := make([]core.ScoredRecord, 0, len(records))
	for i, row := range matrix {
		if len(row) != len(query) {
			return nil, fmt.Errorf("%w: row %d has %d values, query has %d", core.ErrDimensionMismatch, i, len(row), len(query))
		}
		score := Cosine(query, row)
		if e.hasMinScore && score < e.minScore {
			continue
		}
		scored = append(scored, core.ScoredRecord{
			Index:  i,
			Record: &records[i],
			Score:  score,
		})
	}

	slices.SortStableFunc(scored, func(a, b core.ScoredRecord) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored, nil
}

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

package core

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintFromContent(t *testing.T) {
	a := FingerprintFromContent([]byte("first_name,last_name\n"))
	b := FingerprintFromContent([]byte("first_name,last_name\n"))
	c := FingerprintFromContent([]byte("first_name,last_name\nAda,Lovelace\n"))

	assert.Equal(t, a, b, "same content should produce same fingerprint")
	assert.NotEqual(t, a, c, "different content should produce different fingerprint")
	assert.True(t, strings.HasPrefix(string(a), "blake2b:"))
	// 32 bytes hex-encoded
	assert.Len(t, strings.TrimPrefix(string(a), "blake2b:"), 64)
}

func TestDatasetDocTexts(t *testing.T) {
	ds := &Dataset{Records: []Record{{DocText: "a"}, {DocText: "b"}, {DocText: "c"}}}
	assert.Equal(t, []string{"a", "b", "c"}, ds.DocTexts())

	empty := &Dataset{}
	assert.Empty(t, empty.DocTexts())
}

func TestEmbeddingMatrixDimension(t *testing.T) {
	assert.Equal(t, 0, EmbeddingMatrix(nil).Dimension())
	assert.Equal(t, 3, EmbeddingMatrix{{1, 2, 3}, {4, 5, 6}}.Dimension())
}

func TestNewMatch(t *testing.T) {
	rec := &Record{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Company:   "Analytical Engines",
		Title:     "Mathematician",
		Location:  "London",
	}
	m := NewMatch(ScoredRecord{Index: 4, Record: rec, Score: 0.75})

	assert.Equal(t, Match{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Company:   "Analytical Engines",
		Title:     "Mathematician",
		Email:     "ada@example.com",
		Score:     0.75,
	}, m)
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewProviderError(StageQuery, cause)

	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageQuery, pe.Stage)
}

func TestValidateMatrix(t *testing.T) {
	tests := []struct {
		name    string
		matrix  EmbeddingMatrix
		records int
		wantErr error
	}{
		{"empty matrix and no records", nil, 0, nil},
		{"consistent", EmbeddingMatrix{{1, 0}, {0, 1}}, 2, nil},
		{"too few rows", EmbeddingMatrix{{1, 0}}, 2, ErrMatrixMismatch},
		{"too many rows", EmbeddingMatrix{{1, 0}, {0, 1}}, 1, ErrMatrixMismatch},
		{"ragged rows", EmbeddingMatrix{{1, 0}, {0, 1, 2}}, 2, ErrDimensionMismatch},
		{"empty first row", EmbeddingMatrix{{}, {}}, 2, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMatrix(tt.matrix, tt.records)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVector(t *testing.T) {
	assert.NoError(t, ValidateVector([]float32{0.1, 0.2}))
	assert.ErrorIs(t, ValidateVector(nil), ErrDimensionMismatch)
	assert.Error(t, ValidateVector([]float32{float32(math.NaN())}))
	assert.Error(t, ValidateVector([]float32{float32(math.Inf(1))}))
}

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
	"fmt"
	"math"
)

// ValidateMatrix checks that matrix has exactly one row per record and
// that every row has the same non-zero width.
func ValidateMatrix(matrix EmbeddingMatrix, records int) error {
	if len(matrix) != records {
		return fmt.Errorf("%w: %d rows for %d records", ErrMatrixMismatch, len(matrix), records)
	}
	if len(matrix) == 0 {
		return nil
	}

	dim := len(matrix[0])
	if dim == 0 {
		return fmt.Errorf("%w: row 0 is empty", ErrDimensionMismatch)
	}
	for i, row := range matrix {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, i, len(row), dim)
		}
	}
	return nil
}

// ValidateVector rejects empty vectors and vectors containing NaN or Inf.
func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite value at index %d", i)
		}
	}
	return nil
}

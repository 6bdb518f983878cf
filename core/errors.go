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
	"fmt"
)

var (
	// ErrStructuralInput indicates the roster is unreadable or missing required columns.
	ErrStructuralInput = errors.New("structural input error")

	// ErrCacheCorruption indicates persisted cache artifacts could not be decoded
	// or are inconsistent with each other. It is always recovered as a cache miss.
	ErrCacheCorruption = errors.New("cache corruption")

	// ErrProviderFailure indicates the embedding provider failed.
	ErrProviderFailure = errors.New("embedding provider failure")

	// ErrInvalidQuery indicates a blank query string.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrMatrixMismatch indicates the embedding matrix and the dataset disagree on row count.
	ErrMatrixMismatch = errors.New("embedding matrix does not match dataset")

	// ErrDimensionMismatch indicates vectors of different widths were compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Stage identifies when a provider call happened.
type Stage string

const (
	// StageInitialization covers embedding the full roster on a cache miss.
	StageInitialization Stage = "initialization"
	// StageQuery covers embedding a single incoming query.
	StageQuery Stage = "query"
)

// ProviderError wraps a failed embedding call with the stage it happened in.
// It matches both ErrProviderFailure and the underlying cause under errors.Is.
type ProviderError struct {
	Stage Stage
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s during %s: %v", ErrProviderFailure, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProviderFailure, e.Err}
}

// NewProviderError wraps err as a ProviderError for the given stage.
func NewProviderError(stage Stage, err error) error {
	return &ProviderError{Stage: stage, Err: err}
}

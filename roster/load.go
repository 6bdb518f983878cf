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

package roster

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/poiesic/rostermatch/core"
)

// Option configures loading and normalization.
type Option func(*options)

type options struct {
	dedupPolicy         DedupPolicy
	distinctBlankEmails bool
	fingerprinter       Fingerprinter
	logger              *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		dedupPolicy:   KeepFirst,
		fingerprinter: ModTimeFingerprinter{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDedupPolicy selects which duplicate row survives. Default: KeepFirst.
func WithDedupPolicy(policy DedupPolicy) Option {
	return func(o *options) {
		o.dedupPolicy = policy
	}
}

// WithDistinctBlankEmails keeps every row whose email is blank instead of
// collapsing them into one record like any other shared email.
func WithDistinctBlankEmails() Option {
	return func(o *options) {
		o.distinctBlankEmails = true
	}
}

// WithFingerprinter selects how the dataset fingerprint is computed.
// Default: ModTimeFingerprinter.
func WithFingerprinter(fp Fingerprinter) Option {
	return func(o *options) {
		if fp != nil {
			o.fingerprinter = fp
		}
	}
}

// WithLogger sets the logger used while loading.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// Load reads, validates, and normalizes the roster at path.
func Load(ctx context.Context, path string, opts ...Option) (*core.Dataset, error) {
	o := newOptions(opts)
	logger := o.logger.With("component", "roster")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stat before reading so a write racing the read yields a stale
	// fingerprint, which only costs a recompute on the next load.
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStructuralInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", core.ErrStructuralInput, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStructuralInput, err)
	}

	rows, err := ReadCSV(bytes.NewReader(content))
	if err != nil {
		logger.Error("failed to parse roster", "path", path, "err", err)
		return nil, err
	}

	records, stats := normalize(rows, o)
	logger.Info("loaded roster",
		"path", path,
		"rows", stats.Rows,
		"duplicates", stats.Duplicates,
		"empty", stats.Empty,
		"retained", stats.Retained,
		"dedup", o.dedupPolicy.String())

	return &core.Dataset{
		Records:     records,
		Fingerprint: o.fingerprinter.Fingerprint(info, content),
		Source:      path,
	}, nil
}

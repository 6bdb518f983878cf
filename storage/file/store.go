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

package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/poiesic/rostermatch/core"
	"github.com/poiesic/rostermatch/storage"
	"gopkg.in/yaml.v3"
)

const (
	// MetaFileName is the metadata artifact inside the cache directory.
	MetaFileName = "cache_meta.yaml"
	// MatrixFileName is the compressed matrix artifact inside the cache directory.
	MatrixFileName = "cache_matrix.bin.zst"
)

// CacheStore implements storage.CacheStore on the local filesystem.
type CacheStore struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore creates a file-backed cache store rooted at dir.
// Creates the directory if it doesn't exist.
func NewCacheStore(dir string) (storage.CacheStore, error) {
	return newCacheStore(dir)
}

func newCacheStore(dir string) (*CacheStore, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}

	return &CacheStore{
		dir:     dir,
		encoder: encoder,
		decoder: decoder,
		logger:  slog.Default().With("component", "file-cache-store", "dir", dir),
	}, nil
}

// Dir returns the directory holding the cache artifacts.
func (s *CacheStore) Dir() string {
	return s.dir
}

// Load reads and verifies both artifacts.
func (s *CacheStore) Load(ctx context.Context) (*core.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrStorageClosed
	}

	metaBytes, err := os.ReadFile(s.path(MetaFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var meta storage.Meta
	if err := yaml.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrSerializationFailed, MetaFileName, err)
	}

	compressed, err := os.ReadFile(s.path(MatrixFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s present without %s", storage.ErrTruncatedData, MetaFileName, MatrixFileName)
		}
		return nil, err
	}
	matrixBytes, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrSerializationFailed, MatrixFileName, err)
	}

	return storage.Assemble(&meta, matrixBytes)
}

// Save writes the matrix first and the metadata last.
func (s *CacheStore) Save(ctx context.Context, entry *core.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateEntry(entry); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrStorageClosed
	}

	matrixBytes := storage.MarshalMatrix(entry.Matrix)
	meta := storage.NewMeta(entry, matrixBytes)
	metaBytes, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	compressed := s.encoder.EncodeAll(matrixBytes, nil)
	if err := s.writeAtomic(MatrixFileName, compressed); err != nil {
		return fmt.Errorf("failed to write %s: %w", MatrixFileName, err)
	}
	if err := s.writeAtomic(MetaFileName, metaBytes); err != nil {
		return fmt.Errorf("failed to write %s: %w", MetaFileName, err)
	}

	s.logger.Debug("saved cache entry",
		"rows", meta.Rows,
		"dimension", meta.Dimension,
		"raw_bytes", len(matrixBytes),
		"compressed_bytes", len(compressed))
	return nil
}

// Close releases the compression codecs.
func (s *CacheStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.decoder.Close()
	return s.encoder.Close()
}

func (s *CacheStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// writeAtomic writes data to a temporary file in the cache directory, syncs it
// and renames it over name.
func (s *CacheStore) writeAtomic(name string, data []byte) error {
	f, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return s.syncDir()
}

func (s *CacheStore) syncDir() error {
	d, err := os.Open(s.dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

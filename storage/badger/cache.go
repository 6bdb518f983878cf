package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rostermatch/core"
	"github.com/poiesic/rostermatch/storage"
)

// CacheStore implements storage.CacheStore for BadgerDB.
// Metadata and matrix are written in one transaction, so readers observe
// either the previous entry or the new one.
type CacheStore struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.CacheStore = (*CacheStore)(nil)

// NewCacheStore opens a BadgerDB database at path and returns a cache store backed by it.
// Closing the store closes the database.
func NewCacheStore(path string) (storage.CacheStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newCacheStore(backend, true), nil
}

// NewCacheStoreWithBackend creates a cache store on an already open backend.
// The caller remains responsible for closing the backend.
func NewCacheStoreWithBackend(backend *Backend) (*CacheStore, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return newCacheStore(backend, false), nil
}

func newCacheStore(backend *Backend, owns bool) *CacheStore {
	return &CacheStore{
		backend:     backend,
		ownsBackend: owns,
		logger:      slog.Default().With("component", "badger-cache-store"),
	}
}

// Load reads the cache entry.
func (s *CacheStore) Load(ctx context.Context) (*core.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var entry *core.CacheEntry
	err := s.backend.View(func(tx *badger.Txn) error {
		metaBytes, err := readValue(tx, makeCacheMetaKey())
		if err != nil {
			return err
		}
		meta, err := storage.UnmarshalMeta(metaBytes)
		if err != nil {
			return err
		}

		matrixBytes, err := readValue(tx, makeCacheMatrixKey())
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: metadata present without matrix", storage.ErrTruncatedData)
			}
			return err
		}

		entry, err = storage.Assemble(meta, matrixBytes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Save replaces the cache entry.
func (s *CacheStore) Save(ctx context.Context, entry *core.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateEntry(entry); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	matrixBytes := storage.MarshalMatrix(entry.Matrix)
	meta := storage.NewMeta(entry, matrixBytes)

	err := s.backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeCacheMatrixKey(), matrixBytes); err != nil {
			return err
		}
		return tx.Set(makeCacheMetaKey(), storage.MarshalMeta(meta))
	})
	if err != nil {
		return err
	}

	s.logger.Debug("saved cache entry", "rows", meta.Rows, "dimension", meta.Dimension, "model", meta.Model)
	return nil
}

// Close closes the underlying database if this store opened it.
func (s *CacheStore) Close() error {
	if !s.ownsBackend || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

// readValue copies the value stored at key.
func readValue(tx *badger.Txn, key []byte) ([]byte, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

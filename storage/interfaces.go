package storage

import (
	"context"

	"github.com/poiesic/rostermatch/core"
)

// CacheStore persists the single embedding cache slot.
// Implementations must be safe for concurrent use.
type CacheStore interface {
	// Load returns the stored entry.
	// Returns ErrNotFound if nothing has been saved. Any other error means the
	// persisted artifacts exist but could not be read back intact.
	Load(ctx context.Context) (*core.CacheEntry, error)

	// Save replaces the stored entry. Metadata and matrix are written so that a
	// crash mid-save never yields a readable entry that mixes old and new data.
	Save(ctx context.Context, entry *core.CacheEntry) error

	// Close releases any resources held by the store.
	Close() error
}

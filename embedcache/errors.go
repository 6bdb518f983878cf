package embedcache

import "errors"

var (
	// ErrStoreRequired is returned when no CacheStore is supplied.
	ErrStoreRequired = errors.New("cache store is required")

	// ErrDatasetRequired is returned when GetEmbeddings receives a nil dataset.
	ErrDatasetRequired = errors.New("dataset is required")

	// ErrEmbedderRequired is returned when GetEmbeddings receives a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)

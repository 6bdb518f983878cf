package badger

// Key prefixes for different data types
const (
	cachePrefix    = "rcache"
	cacheMetaKey   = cachePrefix + ":meta"
	cacheMatrixKey = cachePrefix + ":matrix"
)

// makeCacheMetaKey returns the key holding the cache metadata.
func makeCacheMetaKey() []byte {
	return []byte(cacheMetaKey)
}

// makeCacheMatrixKey returns the key holding the encoded embedding matrix.
func makeCacheMatrixKey() []byte {
	return []byte(cacheMatrixKey)
}

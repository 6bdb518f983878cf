// Package file implements storage.CacheStore on two plain files in a directory.
//
// The matrix is written to cache_matrix.bin.zst (mus-encoded, zstd-compressed)
// and its description to cache_meta.yaml. Each file is written to a temporary
// name, synced and renamed into place. The matrix is always renamed before the
// metadata, so metadata on disk never describes a matrix that was not fully
// written. A stale or foreign matrix is detected through the CRC32 recorded in
// the metadata.
package file

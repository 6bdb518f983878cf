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

// Package storage provides the persistence abstraction for the embedding cache.
//
// The cache is a single slot: one metadata record and one matrix, overwritten
// whenever the roster or embedding model changes. Backends live in
// subpackages and implement CacheStore.
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.CacheStore interface:
//
//	store, err := file.NewCacheStore("/var/cache/rostermatch")   // storage.CacheStore
//	store, err := badger.NewCacheStore("/var/lib/rostermatch")  // storage.CacheStore
//
// Internal constructors may return concrete types since they are only used
// within the implementation package.
//
// # Wire Format
//
// Both backends share the mus-format codecs in this package:
//
//   - Matrix: varint row count, varint dimension, then row-major raw float32 values
//   - Meta: fingerprint, model, rows, dimension, CRC32 of the matrix bytes, write time
//
// A checksum mismatch or a decode failure surfaces as an error from Load. The
// embedding cache treats any such error as a miss.
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryCacheStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Thread Safety
//
// All CacheStore implementations must be safe for concurrent use.
package storage

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
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint identifies a version of the source roster. Two datasets with
// equal fingerprints are assumed to produce identical embeddings.
type Fingerprint string

// FingerprintFromContent returns a blake2b-256 content fingerprint.
func FingerprintFromContent(data []byte) Fingerprint {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return Fingerprint("blake2b:" + hex.EncodeToString(h.Sum(nil)))
}

// Record is one person on the roster. Records are immutable once loaded.
type Record struct {
	FirstName  string
	LastName   string
	Email      string // Unique key used for deduplication
	Company    string
	Title      string
	Background string
	Keywords   string // Comma-separated free text
	Location   string
	DocText    string // Canonical text the embedding is computed from
}

// Dataset is the ordered set of retained records for one roster version.
type Dataset struct {
	Records     []Record
	Fingerprint Fingerprint
	Source      string // Path the roster was read from, informational only
}

// DocTexts returns every record's DocText in record order.
func (d *Dataset) DocTexts() []string {
	texts := make([]string, len(d.Records))
	for i := range d.Records {
		texts[i] = d.Records[i].DocText
	}
	return texts
}

// EmbeddingMatrix holds one vector per dataset record, in record order.
type EmbeddingMatrix [][]float32

// Dimension returns the width of the matrix, or 0 if it has no rows.
func (m EmbeddingMatrix) Dimension() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// CacheEntry is the persisted single-slot embedding cache.
type CacheEntry struct {
	Fingerprint Fingerprint
	Model       string
	Dimension   int
	Matrix      EmbeddingMatrix
}

// ScoredRecord is a ranked record. Index is the record's position in the dataset.
type ScoredRecord struct {
	Index  int
	Record *Record
	Score  float64
}

// Match is the externally visible projection of a ranked record.
type Match struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Company   string  `json:"company"`
	Title     string  `json:"title"`
	Email     string  `json:"email"`
	Score     float64 `json:"score"`
}

// NewMatch projects a scored record into a Match.
func NewMatch(sr ScoredRecord) Match {
	return Match{
		FirstName: sr.Record.FirstName,
		LastName:  sr.Record.LastName,
		Company:   sr.Record.Company,
		Title:     sr.Record.Title,
		Email:     sr.Record.Email,
		Score:     sr.Score,
	}
}

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

package storage

import (
	"fmt"
	"hash/crc32"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/rostermatch/core"
)

const float32Size = 4

// Meta describes a persisted embedding matrix.
type Meta struct {
	Fingerprint core.Fingerprint `yaml:"fingerprint"`
	Model       string           `yaml:"model"`
	Dimension   int              `yaml:"dimension"`
	Rows        int              `yaml:"rows"`
	Checksum    uint32           `yaml:"checksum"`
	WrittenAt   time.Time        `yaml:"written_at"`
}

// NewMeta builds the metadata for entry, recording the checksum of the encoded matrix.
func NewMeta(entry *core.CacheEntry, matrixBytes []byte) *Meta {
	return &Meta{
		Fingerprint: entry.Fingerprint,
		Model:       entry.Model,
		Dimension:   entry.Dimension,
		Rows:        len(entry.Matrix),
		Checksum:    Checksum(matrixBytes),
		WrittenAt:   time.Now().UTC(),
	}
}

// Checksum returns the CRC32 (IEEE) of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// ValidateEntry checks that entry is internally consistent before it is written.
func ValidateEntry(entry *core.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry", ErrInvalidEntry)
	}
	if err := core.ValidateMatrix(entry.Matrix, len(entry.Matrix)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if len(entry.Matrix) > 0 && entry.Matrix.Dimension() != entry.Dimension {
		return fmt.Errorf("%w: dimension %d does not match matrix width %d", ErrInvalidEntry, entry.Dimension, entry.Matrix.Dimension())
	}
	return nil
}

// Assemble verifies matrixBytes against meta and decodes them into a CacheEntry.
func Assemble(meta *Meta, matrixBytes []byte) (*core.CacheEntry, error) {
	if sum := Checksum(matrixBytes); sum != meta.Checksum {
		return nil, fmt.Errorf("%w: expected %08x, computed %08x", ErrChecksumMismatch, meta.Checksum, sum)
	}
	matrix, err := UnmarshalMatrix(matrixBytes)
	if err != nil {
		return nil, err
	}
	if len(matrix) != meta.Rows {
		return nil, fmt.Errorf("%w: metadata lists %d rows, matrix has %d", ErrSerializationFailed, meta.Rows, len(matrix))
	}
	if len(matrix) > 0 && matrix.Dimension() != meta.Dimension {
		return nil, fmt.Errorf("%w: metadata lists dimension %d, matrix has %d", ErrSerializationFailed, meta.Dimension, matrix.Dimension())
	}
	return &core.CacheEntry{
		Fingerprint: meta.Fingerprint,
		Model:       meta.Model,
		Dimension:   meta.Dimension,
		Matrix:      matrix,
	}, nil
}

// MarshalMatrix serializes a matrix as row count, dimension, then row-major float32 values.
// The matrix must be rectangular.
func MarshalMatrix(matrix core.EmbeddingMatrix) []byte {
	rows := uint64(len(matrix))
	dim := uint64(matrix.Dimension())

	size := varint.Uint64.Size(rows) + varint.Uint64.Size(dim) + int(rows*dim)*float32Size
	buf := make([]byte, size)
	n := varint.Uint64.Marshal(rows, buf)
	n += varint.Uint64.Marshal(dim, buf[n:])
	for _, row := range matrix {
		for _, v := range row {
			n += raw.Float32.Marshal(v, buf[n:])
		}
	}
	return buf
}

// UnmarshalMatrix deserializes a matrix written by MarshalMatrix.
func UnmarshalMatrix(data []byte) (core.EmbeddingMatrix, error) {
	rows, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: row count: %w", ErrSerializationFailed, err)
	}
	dim, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: dimension: %w", ErrSerializationFailed, err)
	}
	n += m

	body := data[n:]
	if rows > 0 {
		if dim == 0 {
			return nil, fmt.Errorf("%w: %d rows with zero dimension", ErrSerializationFailed, rows)
		}
		if dim > uint64(len(body)) {
			return nil, fmt.Errorf("%w: dimension %d exceeds %d remaining bytes", ErrTruncatedData, dim, len(body))
		}
		if rows > uint64(len(body))/(dim*float32Size) {
			return nil, fmt.Errorf("%w: %d rows of %d values need more than %d bytes", ErrTruncatedData, rows, dim, len(body))
		}
	}
	if uint64(len(body)) != rows*dim*float32Size {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, uint64(len(body))-rows*dim*float32Size)
	}

	matrix := make(core.EmbeddingMatrix, rows)
	for i := range matrix {
		row := make([]float32, dim)
		for j := range row {
			v, m, err := raw.Float32.Unmarshal(body)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %w", ErrSerializationFailed, i, err)
			}
			row[j] = v
			body = body[m:]
		}
		matrix[i] = row
	}
	return matrix, nil
}

// MarshalMeta serializes metadata to bytes.
func MarshalMeta(meta *Meta) []byte {
	fp := string(meta.Fingerprint)
	rows := uint64(meta.Rows)
	dim := uint64(meta.Dimension)
	written := meta.WrittenAt.UnixNano()

	size := ord.String.Size(fp) + ord.String.Size(meta.Model) +
		varint.Uint64.Size(rows) + varint.Uint64.Size(dim) +
		varint.Uint32.Size(meta.Checksum) + varint.Int64.Size(written)
	buf := make([]byte, size)
	n := ord.String.Marshal(fp, buf)
	n += ord.String.Marshal(meta.Model, buf[n:])
	n += varint.Uint64.Marshal(rows, buf[n:])
	n += varint.Uint64.Marshal(dim, buf[n:])
	n += varint.Uint32.Marshal(meta.Checksum, buf[n:])
	varint.Int64.Marshal(written, buf[n:])
	return buf
}

// UnmarshalMeta deserializes metadata written by MarshalMeta.
func UnmarshalMeta(data []byte) (*Meta, error) {
	var (
		meta Meta
		n    int
	)
	fp, m, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint: %w", ErrSerializationFailed, err)
	}
	n += m
	meta.Fingerprint = core.Fingerprint(fp)

	if meta.Model, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: model: %w", ErrSerializationFailed, err)
	}
	n += m

	rows, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: rows: %w", ErrSerializationFailed, err)
	}
	n += m
	dim, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: dimension: %w", ErrSerializationFailed, err)
	}
	n += m
	if meta.Checksum, m, err = varint.Uint32.Unmarshal(data[n:]); err != nil {
		return nil, fmt.Errorf("%w: checksum: %w", ErrSerializationFailed, err)
	}
	n += m
	written, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: written_at: %w", ErrSerializationFailed, err)
	}

	meta.Rows = int(rows)
	meta.Dimension = int(dim)
	meta.WrittenAt = time.Unix(0, written).UTC()
	return &meta, nil
}

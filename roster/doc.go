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

// Package roster reads the tabular speaker roster and normalizes it into
// the canonical records the matcher embeds.
//
// Normalization trims every text field, collapses records that share an
// email address according to a DedupPolicy, drops records that have no
// title, background, or keywords, and synthesizes the DocText used for
// embedding:
//
//	title @ company | background | keywords-with-commas-as-spaces
//
// with every whitespace run collapsed to one space.
//
// Each loaded dataset carries a core.Fingerprint produced by a
// Fingerprinter. The default ModTimeFingerprinter keys the embedding cache
// on the file's modification time; ContentFingerprinter hashes the file
// contents instead, which survives copies and clock skew.
package roster

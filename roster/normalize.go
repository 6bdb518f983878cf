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

package roster

import (
	"fmt"
	"strings"

	"github.com/poiesic/rostermatch/core"
)

// DedupPolicy decides which of several rows sharing an email survives.
type DedupPolicy int

const (
	// KeepFirst retains the first row seen for an email.
	KeepFirst DedupPolicy = iota
	// KeepLast retains the last row seen for an email, at that row's position.
	KeepLast
)

func (p DedupPolicy) String() string {
	switch p {
	case KeepFirst:
		return "first"
	case KeepLast:
		return "last"
	default:
		return fmt.Sprintf("DedupPolicy(%d)", int(p))
	}
}

// ParseDedupPolicy maps "first" or "last" to a DedupPolicy.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "":
		return KeepFirst, nil
	case "last":
		return KeepLast, nil
	default:
		return KeepFirst, fmt.Errorf("invalid dedup policy %q: must be one of first, last", s)
	}
}

// Stats summarizes a normalization pass.
type Stats struct {
	Rows       int // Rows read
	Duplicates int // Rows dropped because another row owns the email
	Empty      int // Rows dropped for having no title, background, or keywords
	Retained   int
}

// Normalize turns raw rows into records. Deduplication runs before the
// empty-content filter, so a duplicate is discarded even when the surviving
// row is later filtered out. Output order follows input order.
func Normalize(rows []Row, opts ...Option) []core.Record {
	records, _ := normalize(rows, newOptions(opts))
	return records
}

func normalize(rows []Row, o *options) ([]core.Record, Stats) {
	stats := Stats{Rows: len(rows)}

	cleaned := make([]core.Record, len(rows))
	for i, row := range rows {
		cleaned[i] = cleanRow(row)
	}

	keep := dedup(cleaned, o.dedupPolicy, o.distinctBlankEmails)
	stats.Duplicates = len(rows) - len(keep)

	records := make([]core.Record, 0, len(keep))
	for _, i := range keep {
		rec := cleaned[i]
		if rec.Title == "" && rec.Background == "" && rec.Keywords == "" {
			stats.Empty++
			continue
		}
		rec.DocText = BuildDocText(rec.Title, rec.Company, rec.Background, rec.Keywords)
		records = append(records, rec)
	}
	stats.Retained = len(records)

	return records, stats
}

// dedup returns the indexes of surviving rows in ascending order.
// A blank email is a key like any other unless distinctBlank is set.
func dedup(records []core.Record, policy DedupPolicy, distinctBlank bool) []int {
	owner := make(map[string]int, len(records))
	for i, rec := range records {
		if distinctBlank && rec.Email == "" {
			continue
		}
		if _, seen := owner[rec.Email]; seen && policy == KeepFirst {
			continue
		}
		owner[rec.Email] = i
	}

	keep := make([]int, 0, len(records))
	for i, rec := range records {
		if (distinctBlank && rec.Email == "") || owner[rec.Email] == i {
			keep = append(keep, i)
		}
	}
	return keep
}

func cleanRow(row Row) core.Record {
	return core.Record{
		FirstName:  strings.TrimSpace(row[ColFirstName]),
		LastName:   strings.TrimSpace(row[ColLastName]),
		Email:      strings.TrimSpace(row[ColEmail]),
		Company:    strings.TrimSpace(row[ColCompany]),
		Title:      strings.TrimSpace(row[ColTitle]),
		Background: strings.TrimSpace(row[ColBackground]),
		Keywords:   strings.TrimSpace(row[ColKeywords]),
		Location:   strings.TrimSpace(row[ColLocation]),
	}
}

// BuildDocText assembles the embedding text for a record.
func BuildDocText(title, company, background, keywords string) string {
	doc := title + " @ " + company + " | " + background + " | " + strings.ReplaceAll(keywords, ",", " ")
	return collapseWhitespace(doc)
}

// collapseWhitespace replaces every run of whitespace with one space and trims the ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

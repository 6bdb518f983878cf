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
	"testing"

	"github.com/poiesic/rostermatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(first, last, email, company, title, background, keywords string) Row {
	return Row{
		ColFirstName:  first,
		ColLastName:   last,
		ColEmail:      email,
		ColCompany:    company,
		ColTitle:      title,
		ColBackground: background,
		ColKeywords:   keywords,
		ColLocation:   "Cambridge",
	}
}

func emails(records []core.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Email
	}
	return out
}

func TestBuildDocText(t *testing.T) {
	tests := []struct {
		name                                  string
		title, company, background, keywords string
		want                                  string
	}{
		{
			name:       "all fields",
			title:      "Professor",
			company:    "HGSE",
			background: "Studies   learning\n\tand policy",
			keywords:   "education,policy, equity",
			want:       "Professor @ HGSE | Studies learning and policy | education policy equity",
		},
		{
			name:     "empty background keeps separators",
			title:    "Lecturer",
			company:  "HGSE",
			keywords: "math",
			want:     "Lecturer @ HGSE | | math",
		},
		{
			name: "everything empty",
			want: "@ | |",
		},
		{
			name:       "leading and trailing whitespace trimmed",
			background: "  deep  ",
			want:       "@ | deep |",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildDocText(tt.title, tt.company, tt.background, tt.keywords)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_TrimsFields(t *testing.T) {
	rows := []Row{row("  Ada ", " Lovelace", " ada@example.com ", " AE ", " Mathematician ", "  ", " math ")}

	records := Normalize(rows)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Ada", rec.FirstName)
	assert.Equal(t, "Lovelace", rec.LastName)
	assert.Equal(t, "ada@example.com", rec.Email)
	assert.Equal(t, "AE", rec.Company)
	assert.Equal(t, "Mathematician", rec.Title)
	assert.Equal(t, "", rec.Background)
	assert.Equal(t, "math", rec.Keywords)
	assert.Equal(t, "Cambridge", rec.Location)
	assert.Equal(t, "Mathematician @ AE | | math", rec.DocText)
}

func TestNormalize_MissingFieldsReadAsEmpty(t *testing.T) {
	rows := []Row{
		{ColEmail: "a@x", ColTitle: "Professor"},
		nil,
	}

	records := Normalize(rows)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].FirstName)
	assert.Equal(t, "Professor @ | |", records[0].DocText)
}

func TestNormalize_Dedup(t *testing.T) {
	rows := []Row{
		row("Ada", "Lovelace", "ada@example.com", "AE", "Mathematician", "first", ""),
		row("Alan", "Turing", "alan@example.com", "Bletchley", "Cryptanalyst", "", ""),
		row("Ada", "King", "ada@example.com", "AE", "Countess", "second", ""),
		row("Ada", "Byron", "ada@example.com", "AE", "Poet", "third", ""),
	}

	t.Run("keep first is default", func(t *testing.T) {
		records := Normalize(rows)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"ada@example.com", "alan@example.com"}, emails(records))
		assert.Equal(t, "Lovelace", records[0].LastName)
		assert.Equal(t, "first", records[0].Background)
	})

	t.Run("keep last retains last occurrence at its position", func(t *testing.T) {
		records := Normalize(rows, WithDedupPolicy(KeepLast))
		require.Len(t, records, 2)
		assert.Equal(t, []string{"alan@example.com", "ada@example.com"}, emails(records))
		assert.Equal(t, "Byron", records[1].LastName)
	})

	t.Run("exactly one record per email", func(t *testing.T) {
		for _, policy := range []DedupPolicy{KeepFirst, KeepLast} {
			seen := map[string]int{}
			for _, rec := range Normalize(rows, WithDedupPolicy(policy)) {
				seen[rec.Email]++
			}
			for email, n := range seen {
				assert.Equal(t, 1, n, "email %s under %s", email, policy)
			}
		}
	})

	t.Run("emails differing only by surrounding whitespace collide", func(t *testing.T) {
		records := Normalize([]Row{
			row("A", "One", "x@y.z", "", "T", "", ""),
			row("A", "Two", "  x@y.z  ", "", "T", "", ""),
		})
		require.Len(t, records, 1)
		assert.Equal(t, "One", records[0].LastName)
	})

	t.Run("blank emails collapse like any other", func(t *testing.T) {
		records := Normalize([]Row{
			row("A", "One", "", "", "A", "", ""),
			row("B", "Two", "  ", "", "B", "", ""),
		})
		require.Len(t, records, 1)
		assert.Equal(t, "One", records[0].LastName)
	})

	t.Run("blank emails kept distinct when asked", func(t *testing.T) {
		records := Normalize([]Row{
			row("A", "One", "", "", "A", "", ""),
			row("B", "Two", "  ", "", "B", "", ""),
			row("C", "Three", "c@example.com", "", "C", "", ""),
			row("C", "Three", "c@example.com", "", "C", "", ""),
		}, WithDistinctBlankEmails())
		require.Len(t, records, 3)
		assert.Equal(t, "One", records[0].LastName)
		assert.Equal(t, "Two", records[1].LastName)
		assert.Equal(t, "Three", records[2].LastName)
	})
}

func TestNormalize_DedupRunsBeforeFilter(t *testing.T) {
	// The first occurrence owns the email and is then filtered as empty,
	// so the richer duplicate does not resurface.
	rows := []Row{
		row("Ada", "Lovelace", "ada@example.com", "AE", "", "", ""),
		row("Ada", "Lovelace", "ada@example.com", "AE", "Mathematician", "bio", "math"),
	}

	records := Normalize(rows)
	assert.Empty(t, records)
}

func TestNormalize_Filter(t *testing.T) {
	tests := []struct {
		name                        string
		title, background, keywords string
		retained                    bool
	}{
		{"all empty", "", "", "", false},
		{"whitespace only", "  ", "\t", "\n", false},
		{"title only", "Professor", "", "", true},
		{"background only", "", "Researcher of things", "", true},
		{"keywords only", "", "", "ml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := Normalize([]Row{row("A", "B", "a@b", "Co", tt.title, tt.background, tt.keywords)})
			if tt.retained {
				assert.Len(t, records, 1)
			} else {
				assert.Empty(t, records)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	rows := []Row{row("Ada", "Lovelace", "ada@example.com", "AE", "Mathematician", "Wrote\n the  first program", "computing, math")}

	first := Normalize(rows)
	second := Normalize(rows)
	require.Len(t, first, 1)
	assert.Equal(t, []byte(first[0].DocText), []byte(second[0].DocText))
}

func TestNormalize_PreservesOrder(t *testing.T) {
	rows := []Row{
		row("C", "C", "c@x", "", "T", "", ""),
		row("A", "A", "a@x", "", "", "", ""),
		row("B", "B", "b@x", "", "T", "", ""),
	}

	assert.Equal(t, []string{"c@x", "b@x"}, emails(Normalize(rows)))
}

func TestParseDedupPolicy(t *testing.T) {
	p, err := ParseDedupPolicy("first")
	require.NoError(t, err)
	assert.Equal(t, KeepFirst, p)

	p, err = ParseDedupPolicy("LAST")
	require.NoError(t, err)
	assert.Equal(t, KeepLast, p)

	p, err = ParseDedupPolicy("")
	require.NoError(t, err)
	assert.Equal(t, KeepFirst, p)

	_, err = ParseDedupPolicy("merge")
	assert.Error(t, err)
}

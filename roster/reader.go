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
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/rostermatch/core"
)

// Column names the roster must provide. Extra columns are ignored.
const (
	ColFirstName  = "first_name"
	ColLastName   = "last_name"
	ColEmail      = "email"
	ColCompany    = "company"
	ColTitle      = "title"
	ColBackground = "background"
	ColKeywords   = "keywords"
	ColLocation   = "location"
)

// RequiredColumns lists the header columns ReadCSV insists on, in file order.
var RequiredColumns = []string{
	ColFirstName,
	ColLastName,
	ColEmail,
	ColCompany,
	ColTitle,
	ColBackground,
	ColKeywords,
	ColLocation,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one raw roster row keyed by column name. A missing key reads as "".
type Row map[string]string

// ReadCSV parses a UTF-8 CSV roster. The header must contain every column in
// RequiredColumns; anything structurally wrong is reported as
// core.ErrStructuralInput.
func ReadCSV(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: roster is empty", core.ErrStructuralInput)
		}
		return nil, fmt.Errorf("%w: reading header: %w", core.ErrStructuralInput, err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}

	var rows []Row
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrStructuralInput, err)
		}

		row := make(Row, len(header))
		for i, name := range header {
			row[name] = fields[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func checkColumns(header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}

	var missing []string
	for _, name := range RequiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required columns: %s", core.ErrStructuralInput, strings.Join(missing, ", "))
	}
	return nil
}

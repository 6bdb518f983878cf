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
	"io/fs"
	"strconv"
	"strings"

	"github.com/poiesic/rostermatch/core"
)

// Fingerprinter derives a dataset fingerprint from the roster file.
// content is the exact bytes that were parsed.
type Fingerprinter interface {
	Fingerprint(info fs.FileInfo, content []byte) core.Fingerprint
}

// ModTimeFingerprinter fingerprints by modification time, nanosecond precision.
type ModTimeFingerprinter struct{}

func (ModTimeFingerprinter) Fingerprint(info fs.FileInfo, _ []byte) core.Fingerprint {
	return core.Fingerprint("mtime:" + strconv.FormatInt(info.ModTime().UnixNano(), 10))
}

// ContentFingerprinter fingerprints by a hash of the file contents.
type ContentFingerprinter struct{}

func (ContentFingerprinter) Fingerprint(_ fs.FileInfo, content []byte) core.Fingerprint {
	return core.FingerprintFromContent(content)
}

// ParseFingerprinter maps "mtime" or "content" to a Fingerprinter.
func ParseFingerprinter(name string) (Fingerprinter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mtime", "":
		return ModTimeFingerprinter{}, nil
	case "content":
		return ContentFingerprinter{}, nil
	default:
		return nil, fmt.Errorf("invalid fingerprint mode %q: must be one of mtime, content", name)
	}
}

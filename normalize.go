// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package markitdown

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLineEnd          = regexp.MustCompile(`\r\n?`)
	reTrailingBlank    = regexp.MustCompile(`(?m)[ \t]+$`)
	reExcessiveNewline = regexp.MustCompile(`\n{3,}`)
)

// normalizeOutput cleans converter output: valid UTF-8, LF line endings, no control characters other than
// newline and tab, no trailing blanks, at most one empty line in a row, trimmed.
func normalizeOutput(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = reLineEnd.ReplaceAllString(s, "\n")
	s = strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = reTrailingBlank.ReplaceAllString(s, "")
	s = reExcessiveNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

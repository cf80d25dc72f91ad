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

package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// cjk covers CJK punctuation, Hiragana, Katakana and the unified Han block.
var cjk = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3000, Hi: 0x303F, Stride: 1},
		{Lo: 0x3040, Hi: 0x309F, Stride: 1},
		{Lo: 0x30A0, Hi: 0x30FF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FAF, Stride: 1},
	},
}

var blankRun = regexp.MustCompile(`[ \t]+`)

const zeroWidthSpace = "\u200b"

// NormalizeWidth applies NFKC, folding full-width Latin letters and digits to their half-width forms.
func NormalizeWidth(text string) string {
	return norm.NFKC.String(text)
}

// CleanJapanese removes zero-width spaces and drops space/tab runs whose neighbours on both sides are
// CJK characters. Runs touching Latin text or digits are kept as they are.
func CleanJapanese(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, zeroWidthSpace, "")

	// RE2 has no lookaround, so the neighbours are checked beside each match instead. Matches never
	// consume the CJK characters, so "あ い う" loses both runs in a single pass.
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range blankRun.FindAllStringIndex(text, -1) {
		before, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
		after, _ := utf8.DecodeRuneInString(text[loc[1]:])
		if unicode.Is(cjk, before) && unicode.Is(cjk, after) {
			b.WriteString(text[last:loc[0]])
			last = loc[1]
		}
	}
	b.WriteString(text[last:])
	return b.String()
}

// Normalize runs the Japanese cleanup followed by width normalization.
func Normalize(text string) string {
	return NormalizeWidth(CleanJapanese(text))
}

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

// Package textnorm detects text encodings and normalizes extracted Markdown, with Japanese-specific cleanup.
package textnorm

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

const (
	// UTF8BOM is the name reported for UTF-8 input that starts with a byte-order mark.
	UTF8BOM = "utf-8-sig"
	// UTF8 is the final fallback encoding.
	UTF8 = "utf-8"

	detectSampleSize = 10000
	// chardet reports confidence on a 0-100 scale.
	minConfidence = 70
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fallbackOrder is tried, in order, when statistical detection is not confident enough.
var fallbackOrder = []string{UTF8, "shift_jis", "euc-jp"}

// DetectEncoding returns the encoding name of the file at path. It never fails: unreadable
// or undecidable input is reported as UTF-8.
func DetectEncoding(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return UTF8
	}
	defer f.Close()

	head := make([]byte, detectSampleSize)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	if bytes.HasPrefix(head, utf8BOM) {
		return UTF8BOM
	}
	if name := detectConfident(head); name != "" {
		return name
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return UTF8
	}
	for _, name := range fallbackOrder {
		if decodesCleanly(data, name) {
			return name
		}
	}
	return UTF8
}

// detectConfident runs statistical detection and returns the charset only when the
// detector's confidence is above the threshold.
func detectConfident(sample []byte) string {
	if len(sample) == 0 {
		return ""
	}
	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil || res.Confidence <= minConfidence {
		return ""
	}
	return res.Charset
}

// decodesCleanly reports whether data decodes under the named encoding without substitutions.
func decodesCleanly(data []byte, name string) bool {
	enc := LookupEncoding(name)
	if enc == nil {
		return false
	}
	if enc == unicode.UTF8 {
		return utf8.Valid(data)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return false
	}
	return !bytes.ContainsRune(out, utf8.RuneError)
}

// Decode converts data from the named encoding to a UTF-8 string.
func Decode(data []byte, name string) (string, error) {
	if name == UTF8BOM {
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	}
	enc := LookupEncoding(name)
	if enc == nil {
		return "", fmt.Errorf("unknown encoding %q", name)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}

// DecodeAuto decodes data of unknown encoding to UTF-8, preferring valid UTF-8 and otherwise
// scoring every charset the detector proposes.
func DecodeAuto(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil || len(results) == 0 {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}

	best, bestScore := "", -1<<31
	for _, r := range results {
		text, err := Decode(data, r.Charset)
		if err != nil {
			continue
		}
		if score := scoreDecoded(text, r.Confidence); score > bestScore {
			best, bestScore = text, score
		}
	}
	if best == "" {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return best
}

// scoreDecoded rates how plausible a decoding is. chardet often mistakes CJK legacy encodings for
// single-byte Latin ones, so kana and full-width forms earn a strong bonus while substitutions and
// stray control characters are penalised.
func scoreDecoded(text string, confidence int) int {
	score := confidence
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
			score -= 10
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
			score -= 5
		case r >= 0x3040 && r <= 0x30FF, r >= 0xFF00 && r <= 0xFFEF:
			score += 5
		case r >= 0x4E00 && r <= 0x9FFF:
			score += 2
		case r >= 'A' && r <= 'z':
			score++
		}
	}
	return score
}

// LookupEncoding maps a charset name to its decoder, or nil when unknown.
func LookupEncoding(name string) encoding.Encoding {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(name))
	switch key {
	case "utf8", "utf8sig", "ascii", "usascii":
		return unicode.UTF8
	case "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "iso88591", "latin1":
		return charmap.ISO8859_1
	case "iso88592":
		return charmap.ISO8859_2
	case "iso88595":
		return charmap.ISO8859_5
	case "iso88597":
		return charmap.ISO8859_7
	case "iso88599":
		return charmap.ISO8859_9
	case "iso885915":
		return charmap.ISO8859_15
	case "windows1250", "cp1250":
		return charmap.Windows1250
	case "windows1251", "cp1251":
		return charmap.Windows1251
	case "windows1252", "cp1252":
		return charmap.Windows1252
	case "koi8r":
		return charmap.KOI8R
	case "shiftjis", "sjis", "cp932", "windows31j", "mskanji":
		return japanese.ShiftJIS
	case "eucjp":
		return japanese.EUCJP
	case "iso2022jp":
		return japanese.ISO2022JP
	case "euckr", "cp949":
		return korean.EUCKR
	case "gb2312", "gbk", "cp936", "gb18030":
		return simplifiedchinese.GBK
	case "big5", "cp950":
		return traditionalchinese.Big5
	}
	return nil
}

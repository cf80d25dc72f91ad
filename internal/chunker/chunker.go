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

// Package chunker splits Markdown into header-bounded chunks for retrieval indexing.
package chunker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// DefaultLevel splits on H1 and H2.
const DefaultLevel = 2

// PreambleHeader labels text that precedes the first splitting header.
const PreambleHeader = "Preamble / Introduction"

var headerLine = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Chunk is one header-bounded slice of a document.
type Chunk struct {
	Source string `json:"source"`
	Header string `json:"header"`
	// Content is trimmed and starts with the header line itself.
	Content string `json:"content"`
	// Level is the header depth, 0 for the preamble.
	Level int `json:"level"`
}

// Split cuts text at every header of level maxLevel or shallower. Deeper headers stay inside the current
// chunk. Chunks with no content after trimming are dropped. A maxLevel outside 1..6 selects DefaultLevel.
// The pipeline passes the document body only, so the YAML frontmatter never appears in a chunk.
func Split(text, source string, maxLevel int) []Chunk {
	if maxLevel < 1 || maxLevel > 6 {
		maxLevel = DefaultLevel
	}

	var (
		chunks []Chunk
		cur    = Chunk{Source: source}
		lines  []string
	)
	flush := func() {
		if content := strings.TrimSpace(strings.Join(lines, "\n")); content != "" {
			cur.Content = content
			chunks = append(chunks, cur)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		m := headerLine.FindStringSubmatch(line)
		if m == nil || len(m[1]) > maxLevel {
			lines = append(lines, line)
			continue
		}
		flush()
		cur = Chunk{Source: source, Header: strings.TrimSpace(m[2]), Level: len(m[1])}
		lines = []string{line}
	}
	flush()

	if len(chunks) > 0 && chunks[0].Header == "" {
		chunks[0].Header = PreambleHeader
	}
	return chunks
}

// WriteJSONL writes one compact JSON object per chunk and line. Non-ASCII text and HTML characters are
// written as-is.
func WriteJSONL(w io.Writer, chunks []Chunk) error {
	bw := bufio.NewWriter(w)
	var line bytes.Buffer
	enc := json.NewEncoder(&line)
	enc.SetEscapeHTML(false)
	for i, c := range chunks {
		line.Reset()
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode chunk %d: %w", i, err)
		}
		if _, err := bw.Write(line.Bytes()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

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
	"fmt"
	"io"
	"strings"

	"github.com/nicholasgasior/markitdown-rag/internal/textnorm"
)

// PlainTextConverter handles plain text, Markdown and JSON files.
type PlainTextConverter struct{}

// NewPlainTextConverter creates a new PlainTextConverter.
func NewPlainTextConverter() *PlainTextConverter {
	return &PlainTextConverter{}
}

func (c *PlainTextConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".txt", ".text", ".md", ".markdown", ".json", ".jsonl", ".xml":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "text/") ||
		strings.HasPrefix(mime, "application/json") ||
		strings.HasPrefix(mime, "application/xml")
}

func (c *PlainTextConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return &DocumentConverterResult{Markdown: decodeText(data, info)}, nil
}

// decodeText converts raw bytes to UTF-8. A charset hint wins; otherwise a BOM or a Japanese encoding
// detected on disk is trusted, and everything else goes through scored auto-detection.
func decodeText(data []byte, info StreamInfo) string {
	if info.Charset != "" {
		if text, err := textnorm.Decode(data, info.Charset); err == nil {
			return text
		}
	}
	if info.LocalPath != "" {
		name := textnorm.DetectEncoding(info.LocalPath)
		switch strings.ToLower(name) {
		case textnorm.UTF8BOM, "shift_jis", "euc-jp", "iso-2022-jp":
			if text, err := textnorm.Decode(data, name); err == nil {
				return text
			}
		}
	}
	return textnorm.DecodeAuto(data)
}

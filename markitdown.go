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

// Package markitdown is the extraction engine: it turns PDF, Word, PowerPoint, Excel, image and text files into
// plain Markdown. Enrichment (images, AI summaries, chunking) is layered on top by internal/pipeline.
package markitdown

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// PrioritySpecific is for format-specific converters (PDF, DOCX, etc.).
	PrioritySpecific = 0.0
	// PriorityGeneric is for fallback converters (plain text, HTML).
	PriorityGeneric = 10.0
)

type registeredConverter struct {
	converter DocumentConverter
	priority  float64
	name      string
}

// MarkItDown is the document-to-markdown conversion engine.
type MarkItDown struct {
	converters   []registeredConverter
	keepDataURIs bool
}

// New creates a new MarkItDown instance with the given options.
func New(opts ...Option) *MarkItDown {
	m := &MarkItDown{}
	for _, opt := range opts {
		opt(m)
	}
	m.enableBuiltins()
	return m
}

// RegisterConverter adds a custom converter with the given priority.
// Lower priority values are tried first; converters of equal priority keep registration order.
func (m *MarkItDown) RegisterConverter(name string, c DocumentConverter, priority float64) {
	m.converters = append(m.converters, registeredConverter{
		converter: c,
		priority:  priority,
		name:      name,
	})
	sort.SliceStable(m.converters, func(i, j int) bool {
		return m.converters[i].priority < m.converters[j].priority
	})
}

// ConvertFile converts a local file to markdown.
func (m *MarkItDown) ConvertFile(path string) (*DocumentConverterResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	info := StreamInfo{
		Extension: ext,
		Filename:  filepath.Base(path),
		LocalPath: path,
		MIMEType:  detectMIMEType(f, ext),
	}

	return m.ConvertReader(f, info)
}

// ConvertStream converts a stream whose MIME type is unknown: it is sniffed from the content, falling back to
// info.Extension.
func (m *MarkItDown) ConvertStream(r io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	info.Extension = strings.ToLower(info.Extension)
	if info.Extension != "" && !strings.HasPrefix(info.Extension, ".") {
		info.Extension = "." + info.Extension
	}
	if info.MIMEType == "" {
		info.MIMEType = detectMIMEType(r, info.Extension)
	}
	return m.ConvertReader(r, info)
}

// ConvertReader runs the converters that accept info in priority order and returns the first success. The
// stream is rewound before every attempt.
func (m *MarkItDown) ConvertReader(r io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	convErr := &ConversionError{Filename: info.Filename}
	for _, rc := range m.converters {
		if !rc.converter.Accepts(info) {
			continue
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind %s: %w", info.Filename, err)
		}
		result, err := rc.converter.Convert(r, info)
		if err == nil {
			result.Markdown = normalizeOutput(result.Markdown)
			return result, nil
		}
		convErr.Attempts = append(convErr.Attempts, FailedConversionAttempt{Converter: rc.name, Err: err})
	}

	if len(convErr.Attempts) == 0 {
		return nil, &UnsupportedFormatError{Filename: info.Filename, Extension: info.Extension, MIMEType: info.MIMEType}
	}
	return nil, convErr
}

// enableBuiltins registers all built-in converters.
func (m *MarkItDown) enableBuiltins() {
	m.RegisterConverter("docx", NewDocxConverter(m), PrioritySpecific)
	m.RegisterConverter("pptx", NewPptxConverter(), PrioritySpecific)
	m.RegisterConverter("xlsx", NewXlsxConverter(), PrioritySpecific)
	m.RegisterConverter("xls", NewXlsConverter(), PrioritySpecific)
	m.RegisterConverter("pdf", NewPdfConverter(), PrioritySpecific)
	m.RegisterConverter("csv", NewCsvConverter(), PrioritySpecific)
	m.RegisterConverter("feed", NewFeedConverter(), PrioritySpecific)
	m.RegisterConverter("image", NewImageConverter(), PrioritySpecific)

	m.RegisterConverter("html", NewHTMLConverter(m), PriorityGeneric)
	m.RegisterConverter("plaintext", NewPlainTextConverter(), PriorityGeneric)
}

// detectMIMEType sniffs the content and falls back to the extension. The reader is rewound afterwards.
func detectMIMEType(r io.ReadSeeker, ext string) string {
	mtype, err := mimetype.DetectReader(r)
	if _, seekErr := r.Seek(0, io.SeekStart); seekErr != nil {
		return mimeFromExtension(ext)
	}
	if err == nil && mtype.String() != "application/octet-stream" {
		// Office documents sniff as a bare zip; the extension is more precise.
		if mtype.Is("application/zip") {
			if byExt := mimeFromExtension(ext); byExt != "application/octet-stream" {
				return byExt
			}
		}
		return mtype.String()
	}
	return mimeFromExtension(ext)
}

var extMIMETypes = map[string]string{
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":      "application/vnd.ms-excel",
	".html":     "text/html",
	".htm":      "text/html",
	".csv":      "text/csv",
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".json":     "application/json",
	".xml":      "text/xml",
	".rss":      "application/rss+xml",
	".atom":     "application/atom+xml",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".bmp":      "image/bmp",
	".webp":     "image/webp",
	".tiff":     "image/tiff",
}

// mimeFromExtension returns a MIME type for common extensions.
func mimeFromExtension(ext string) string {
	if m, ok := extMIMETypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

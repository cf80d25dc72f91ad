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

// Package images pulls embedded raster images out of Word, PowerPoint and PDF files, stores them next to
// the converted Markdown, optionally asks a vision model to describe them, and renders the Markdown section
// that references them.
package images

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a raster image format. Its value doubles as the file extension.
type Format string

// Recognized formats. Anything else found in a document is skipped.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	WEBP Format = "webp"
)

// MIMEType returns the image/<format> media type sent to vision models.
func (f Format) MIMEType() string {
	return "image/" + string(f)
}

// ParseFormat maps an extension or format name ("jpg", ".PNG") to a recognized format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG, true
	case "jpg", "jpeg":
		return JPEG, true
	case "gif":
		return GIF, true
	case "bmp":
		return BMP, true
	case "webp":
		return WEBP, true
	}
	return "", false
}

// sniffFormat identifies the format from the image bytes, falling back to the declared name.
func sniffFormat(data []byte, declared string) (Format, bool) {
	mt := mimetype.Detect(data)
	if strings.HasPrefix(mt.String(), "image/") {
		if f, ok := ParseFormat(strings.TrimPrefix(mt.Extension(), ".")); ok {
			return f, true
		}
		// Sniffed as a raster type outside the recognized set (tiff, svg, emf...).
		if mt.Extension() != "" {
			return "", false
		}
	}
	return ParseFormat(declared)
}

// ExtractedImage is one image found in a document.
type ExtractedImage struct {
	// Index is the 1-based position in encounter order.
	Index int
	Data  []byte
	// Format of the encoded bytes.
	Format Format
	// SourcePage is the 1-based slide or page number, 0 when unknown.
	SourcePage  int
	Description string
	OCRText     string
}

// FileName is the name the image is saved under.
func (img *ExtractedImage) FileName() string {
	return fileName(img.Index, img.Format)
}

// Describer turns an image into a short description. ai.Client satisfies it.
type Describer interface {
	DescribeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
}

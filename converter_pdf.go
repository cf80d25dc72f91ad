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
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PdfConverter extracts the text layer of a PDF page by page. Scanned pages without text yield nothing;
// their content is reached through the image pipeline instead.
type PdfConverter struct{}

// NewPdfConverter creates a new PdfConverter.
func NewPdfConverter() *PdfConverter {
	return &PdfConverter{}
}

func (c *PdfConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".pdf" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "application/pdf")
}

func (c *PdfConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var md strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		if text := strings.TrimSpace(pageText(page)); text != "" {
			md.WriteString(text)
			md.WriteString("\n\n")
		}
	}

	return &DocumentConverterResult{Markdown: md.String(), Title: pdfTitle(r)}, nil
}

// pageText joins the words of each row, inserting a space where the reader reports an empty run.
// Pages whose rows cannot be grouped fall back to positioned glyphs sorted top-down, left-right.
func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		var out strings.Builder
		for _, row := range rows {
			var line strings.Builder
			gap := false
			for _, w := range row.Content {
				if w.S == "" {
					gap = true
					continue
				}
				if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
					line.WriteByte(' ')
				}
				line.WriteString(w.S)
				gap = false
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				out.WriteString(s)
				out.WriteByte('\n')
			}
		}
		if strings.TrimSpace(out.String()) != "" {
			return out.String()
		}
	}

	glyphs := page.Content().Text
	sort.SliceStable(glyphs, func(i, j int) bool {
		if glyphs[i].Y != glyphs[j].Y {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})
	var out strings.Builder
	lastY := 0.0
	for i, g := range glyphs {
		if i > 0 && g.Y != lastY {
			out.WriteByte('\n')
		}
		out.WriteString(g.S)
		lastY = g.Y
	}
	return out.String()
}

func pdfTitle(r *pdf.Reader) string {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	return strings.TrimSpace(info.Key("Title").Text())
}

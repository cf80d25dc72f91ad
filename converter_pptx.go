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
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/nicholasgasior/markitdown-rag/internal/ooxml"
)

// PptxConverter renders PowerPoint slides in order. Each slide starts with an HTML comment carrying its
// number, followed by its title, text frames, tables and picture alt text, then the speaker notes.
type PptxConverter struct{}

// NewPptxConverter creates a new PptxConverter.
func NewPptxConverter() *PptxConverter {
	return &PptxConverter{}
}

func (c *PptxConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".pptx" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "application/vnd.openxmlformats-officedocument.presentationml")
}

func (c *PptxConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read PPTX: %w", err)
	}
	pkg, err := ooxml.OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("open PPTX: %w", err)
	}
	slides, err := pkg.Slides()
	if err != nil {
		return nil, fmt.Errorf("list slides: %w", err)
	}

	var md strings.Builder
	var title string
	for i, part := range slides {
		fmt.Fprintf(&md, "<!-- Slide number: %d -->\n", i+1)

		body, err := pkg.ReadFile(part)
		if err != nil {
			return nil, fmt.Errorf("read slide %d: %w", i+1, err)
		}
		blocks, slideTitle, err := slideBlocks(body)
		if err != nil {
			return nil, fmt.Errorf("parse slide %d: %w", i+1, err)
		}
		if title == "" {
			title = slideTitle
		}
		for _, b := range blocks {
			md.WriteString(b + "\n\n")
		}

		if notesPart := pkg.RelatedPart(part, ooxml.RelNotes); notesPart != "" {
			if notes := slideNotes(pkg, notesPart); notes != "" {
				md.WriteString("### Notes:\n" + notes + "\n\n")
			}
		}
	}
	return &DocumentConverterResult{Markdown: md.String(), Title: title}, nil
}

var reNonWord = regexp.MustCompile(`\W`)

// slideShape accumulates the content of one p:sp, p:graphicFrame or p:pic element.
type slideShape struct {
	placeholder string
	name        string
	alt         string
	paragraphs  []string
	rows        [][]string
	isPicture   bool
}

// slideBlocks walks a slide's shape tree and returns one Markdown block per shape, plus the slide title.
func slideBlocks(body []byte) ([]string, string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		blocks []string
		title  string
		shape  *slideShape
		depth  int // nesting of shape elements, so group shapes do not reset state
		para   strings.Builder
		cell   strings.Builder
		inCell bool
		inText bool
		row    []string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp", "graphicFrame", "pic":
				if depth == 0 {
					shape = &slideShape{isPicture: t.Name.Local == "pic"}
				}
				depth++
			case "cNvPr":
				if shape != nil && shape.name == "" {
					shape.name = attr(t, "name")
					shape.alt = attr(t, "descr")
				}
			case "ph":
				if shape != nil {
					shape.placeholder = attr(t, "type")
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "br":
				para.WriteString("\n")
			case "tr":
				row = nil
			case "tc":
				cell.Reset()
				inCell = true
			}
		case xml.CharData:
			if inText {
				if inCell {
					cell.Write(t)
				} else {
					para.Write(t)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if shape != nil && !inCell {
					if s := strings.TrimSpace(para.String()); s != "" {
						shape.paragraphs = append(shape.paragraphs, s)
					}
				} else if inCell {
					cell.WriteString(" ")
				}
			case "tc":
				row = append(row, strings.TrimSpace(cell.String()))
				inCell = false
			case "tr":
				if shape != nil {
					shape.rows = append(shape.rows, row)
				}
			case "sp", "graphicFrame", "pic":
				depth--
				if depth == 0 && shape != nil {
					block, isTitle := shape.markdown()
					if block != "" {
						blocks = append(blocks, block)
						if isTitle && title == "" {
							title = strings.TrimPrefix(block, "# ")
						}
					}
					shape = nil
				}
			}
		}
	}
	return blocks, title, nil
}

func (s *slideShape) markdown() (string, bool) {
	switch {
	case len(s.rows) > 0:
		return strings.TrimRight(renderMarkdownTable(s.rows), "\n"), false
	case s.isPicture:
		alt := strings.Join(strings.Fields(s.alt), " ")
		file := reNonWord.ReplaceAllString(s.name, "") + ".jpg"
		return fmt.Sprintf("![%s](%s)", alt, file), false
	case len(s.paragraphs) == 0:
		return "", false
	case s.placeholder == "title" || s.placeholder == "ctrTitle":
		return "# " + strings.Join(s.paragraphs, " "), true
	}
	return strings.Join(s.paragraphs, "\n"), false
}

// slideNotes returns the text of the notes body placeholder, skipping slide images and numbers.
func slideNotes(pkg *ooxml.Package, part string) string {
	data, err := pkg.ReadFile(part)
	if err != nil {
		return ""
	}
	blocks, _, err := slideBlocks(data)
	if err != nil {
		return ""
	}
	var keep []string
	for _, b := range blocks {
		if strings.HasPrefix(b, "![") || isDigits(b) {
			continue
		}
		keep = append(keep, b)
	}
	return strings.Join(keep, "\n")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

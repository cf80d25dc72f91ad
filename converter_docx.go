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
	"html"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/nicholasgasior/markitdown-rag/internal/ooxml"
)

const docxMain = "word/document.xml"

// DocxConverter renders Word documents to HTML and hands the result to the HTML converter.
type DocxConverter struct {
	markitdown *MarkItDown
}

// NewDocxConverter creates a new DocxConverter.
func NewDocxConverter(m *MarkItDown) *DocxConverter {
	return &DocxConverter{markitdown: m}
}

func (c *DocxConverter) Accepts(info StreamInfo) bool {
	if info.Extension == ".docx" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

func (c *DocxConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read DOCX: %w", err)
	}
	pkg, err := ooxml.OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}
	body, err := pkg.ReadFile(docxMain)
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}
	rels, err := pkg.RelationshipMap(docxMain)
	if err != nil {
		return nil, err
	}

	r := &docxRenderer{
		rels:      rels,
		headings:  docxHeadingStyles(pkg),
		numbering: docxNumbering(pkg),
	}
	doc, err := r.render(body)
	if err != nil {
		return nil, fmt.Errorf("parse document body: %w", err)
	}
	return NewHTMLConverter(c.markitdown).ConvertString(doc)
}

// docxHeadingStyles maps style IDs to heading levels using the style names ("heading 2", "Title").
func docxHeadingStyles(pkg *ooxml.Package) map[string]int {
	levels := map[string]int{}
	data, err := pkg.ReadFile("word/styles.xml")
	if err != nil {
		return levels
	}
	var doc struct {
		Styles []struct {
			ID   string `xml:"styleId,attr"`
			Name struct {
				Val string `xml:"val,attr"`
			} `xml:"name"`
		} `xml:"style"`
	}
	if xml.Unmarshal(data, &doc) != nil {
		return levels
	}
	for _, s := range doc.Styles {
		if lvl := headingLevel(s.Name.Val); lvl > 0 {
			levels[s.ID] = lvl
		}
	}
	return levels
}

// headingLevel recognises "Title", "heading N" and "HeadingN" style names.
func headingLevel(name string) int {
	n := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	if n == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(n, "heading"); ok {
		if lvl, err := strconv.Atoi(rest); err == nil && lvl >= 1 && lvl <= 6 {
			return lvl
		}
	}
	return 0
}

// docxNumbering reports, per numId and level, whether the list is ordered.
func docxNumbering(pkg *ooxml.Package) map[string]map[int]bool {
	out := map[string]map[int]bool{}
	data, err := pkg.ReadFile("word/numbering.xml")
	if err != nil {
		return out
	}
	var doc struct {
		Abstract []struct {
			ID     string `xml:"abstractNumId,attr"`
			Levels []struct {
				Ilvl   int `xml:"ilvl,attr"`
				NumFmt struct {
					Val string `xml:"val,attr"`
				} `xml:"numFmt"`
			} `xml:"lvl"`
		} `xml:"abstractNum"`
		Nums []struct {
			ID       string `xml:"numId,attr"`
			Abstract struct {
				Val string `xml:"val,attr"`
			} `xml:"abstractNumId"`
		} `xml:"num"`
	}
	if xml.Unmarshal(data, &doc) != nil {
		return out
	}
	abstract := map[string]map[int]bool{}
	for _, a := range doc.Abstract {
		lv := map[int]bool{}
		for _, l := range a.Levels {
			lv[l.Ilvl] = l.NumFmt.Val != "" && l.NumFmt.Val != "bullet" && l.NumFmt.Val != "none"
		}
		abstract[a.ID] = lv
	}
	for _, n := range doc.Nums {
		out[n.ID] = abstract[n.Abstract.Val]
	}
	return out
}

// docxRenderer streams document.xml and writes equivalent HTML.
type docxRenderer struct {
	rels      map[string]ooxml.Relationship
	headings  map[string]int
	numbering map[string]map[int]bool

	out bytes.Buffer

	// paragraph state
	para     strings.Builder
	style    string
	numID    string
	ilvl     int
	inList   bool
	bold     bool
	italic   bool
	inText   bool
	altText  string
	tableDep int

	// open list levels, each entry true when ordered
	lists []bool
}

func (r *docxRenderer) render(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var linkStack []bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				r.para.Reset()
				r.style, r.numID, r.ilvl, r.inList = "", "", 0, false
			case "pStyle":
				r.style = attr(t, "val")
			case "numId":
				r.numID = attr(t, "val")
				r.inList = r.numID != "" && r.numID != "0"
			case "ilvl":
				r.ilvl, _ = strconv.Atoi(attr(t, "val"))
			case "r":
				r.bold, r.italic = false, false
			case "b":
				r.bold = toggleOn(t)
			case "i":
				r.italic = toggleOn(t)
			case "t":
				r.inText = true
			case "tab":
				r.para.WriteString(" ")
			case "br", "cr":
				r.para.WriteString("<br>")
			case "hyperlink":
				rel, ok := r.rels[attr(t, "id")]
				opened := ok && rel.External()
				if opened {
					fmt.Fprintf(&r.para, `<a href="%s">`, html.EscapeString(rel.Target))
				}
				linkStack = append(linkStack, opened)
			case "docPr":
				r.altText = attr(t, "descr")
				if r.altText == "" {
					r.altText = attr(t, "title")
				}
			case "blip":
				if rel, ok := r.rels[attr(t, "embed")]; ok {
					fmt.Fprintf(&r.para, `<img src="%s" alt="%s">`,
						html.EscapeString(path.Base(rel.Target)), html.EscapeString(r.altText))
				}
				r.altText = ""
			case "tbl":
				r.closeLists()
				r.tableDep++
				r.out.WriteString("<table>")
			case "tr":
				r.out.WriteString("<tr>")
			case "tc":
				r.out.WriteString("<td>")
			}
		case xml.CharData:
			if r.inText {
				text := html.EscapeString(string(t))
				switch {
				case r.bold && r.italic:
					text = "<strong><em>" + text + "</em></strong>"
				case r.bold:
					text = "<strong>" + text + "</strong>"
				case r.italic:
					text = "<em>" + text + "</em>"
				}
				r.para.WriteString(text)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				r.inText = false
			case "hyperlink":
				if n := len(linkStack); n > 0 {
					if linkStack[n-1] {
						r.para.WriteString("</a>")
					}
					linkStack = linkStack[:n-1]
				}
			case "p":
				r.flushParagraph()
			case "tc":
				r.out.WriteString("</td>")
			case "tr":
				r.out.WriteString("</tr>")
			case "tbl":
				r.tableDep--
				r.out.WriteString("</table>")
			}
		}
	}
	r.closeLists()
	return "<html><body>" + r.out.String() + "</body></html>", nil
}

func (r *docxRenderer) flushParagraph() {
	text := strings.TrimSpace(r.para.String())

	// Table cells hold plain paragraphs separated by breaks.
	if r.tableDep > 0 {
		if text != "" {
			r.out.WriteString(text + "<br>")
		}
		return
	}

	if r.inList && text != "" {
		r.listItem(text)
		return
	}
	r.closeLists()
	if text == "" {
		return
	}
	if lvl := r.headings[r.style]; lvl > 0 {
		fmt.Fprintf(&r.out, "<h%d>%s</h%d>", lvl, text, lvl)
		return
	}
	if lvl := headingLevel(r.style); lvl > 0 {
		fmt.Fprintf(&r.out, "<h%d>%s</h%d>", lvl, text, lvl)
		return
	}
	r.out.WriteString("<p>" + text + "</p>")
}

// listItem emits an <li>, opening or closing nested lists to reach the paragraph's level.
func (r *docxRenderer) listItem(text string) {
	depth := r.ilvl + 1
	ordered := r.numbering[r.numID][r.ilvl]
	for len(r.lists) > depth {
		r.popList()
	}
	switch {
	case len(r.lists) == depth:
		r.out.WriteString("</li>")
	default:
		for len(r.lists) < depth {
			if ordered {
				r.out.WriteString("<ol>")
			} else {
				r.out.WriteString("<ul>")
			}
			r.lists = append(r.lists, ordered)
		}
	}
	r.out.WriteString("<li>" + text)
}

func (r *docxRenderer) popList() {
	n := len(r.lists)
	if r.lists[n-1] {
		r.out.WriteString("</li></ol>")
	} else {
		r.out.WriteString("</li></ul>")
	}
	r.lists = r.lists[:n-1]
}

func (r *docxRenderer) closeLists() {
	for len(r.lists) > 0 {
		r.popList()
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// toggleOn reads an OOXML on/off property such as <w:b/> or <w:b w:val="0"/>.
func toggleOn(t xml.StartElement) bool {
	switch attr(t, "val") {
	case "0", "false", "off":
		return false
	}
	return true
}
